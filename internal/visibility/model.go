package visibility

// Level is how much of a subject's content a viewer may see.
type Level int

const (
	// LevelNone: the subject does not exist or the viewer is anonymous.
	LevelNone Level = iota
	// LevelPartial: profile summary and counts only, no content lists.
	LevelPartial
	// LevelFull: everything the subject exposes.
	LevelFull
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case LevelPartial:
		return "partial"
	case LevelFull:
		return "full"
	default:
		return "none"
	}
}
