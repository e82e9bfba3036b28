package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/nsaleh/socialnet/docs"
	"github.com/nsaleh/socialnet/internal/auth"
	"github.com/nsaleh/socialnet/internal/config"
	"github.com/nsaleh/socialnet/internal/database"
	"github.com/nsaleh/socialnet/internal/event"
	"github.com/nsaleh/socialnet/internal/follow"
	"github.com/nsaleh/socialnet/internal/group"
	"github.com/nsaleh/socialnet/internal/notification"
	"github.com/nsaleh/socialnet/internal/user"
	"github.com/nsaleh/socialnet/internal/visibility"
	"github.com/nsaleh/socialnet/pkg/keylock"
	mw "github.com/nsaleh/socialnet/pkg/middleware"
)

// @title           Socialnet Membership API
// @version         1.0
// @description     Follow, group membership, invitation and event RSVP engine.
// @BasePath        /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connection and run migrations
	db, dialect, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, dialect); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to %s database", dialect)

	// Per-aggregate write serialization
	locks := keylock.New()

	// Notification feature: persistence plus the websocket hub
	hub := notification.NewHub(originChecker(cfg.AllowedOrigins))
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, hub)
	notificationHandler := notification.NewHandler(notificationService, hub)

	// Visibility gate
	visibilityRepo := visibility.NewRepository(db)
	visibilityService := visibility.NewService(visibilityRepo)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)

	// Session feature
	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, time.Duration(cfg.SessionTTLHours)*time.Hour)
	authHandler := auth.NewHandler(userService, authService, false)

	// Follow feature
	followRepo := follow.NewRepository(db)
	followService := follow.NewService(followRepo, locks, notificationService, visibilityService, cfg.FollowAutoAcceptPublic)
	followHandler := follow.NewHandler(followService)

	userHandler := user.NewHandler(userService, visibilityService, followService)

	// Group feature
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, locks, notificationService)
	groupHandler := group.NewHandler(groupService)

	// Event feature
	eventRepo := event.NewRepository(db)
	eventService := event.NewService(eventRepo, notificationService)
	eventHandler := event.NewHandler(eventService)

	// Hourly janitor: expired sessions and old read notifications.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			if err := authRepo.DeleteExpired(ctx, time.Now().UTC()); err != nil {
				log.Printf("session cleanup failed: %v", err)
			}
			cutoff := time.Now().UTC().AddDate(0, 0, -30)
			if n, err := notificationRepo.DeleteOlderThan(ctx, cutoff); err != nil {
				log.Printf("notification cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("pruned %d read notifications", n)
			}
		}
	}()

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	requireAuth := mw.RequireAuth(authService)

	// Websocket notification stream
	r.With(requireAuth).Get("/ws", notificationHandler.ServeWS)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Mount("/users", userHandler.Routes())
			r.Mount("/follows", followHandler.Routes())
			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/events", eventHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// originChecker admits websocket upgrades only from the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) || a == "*" {
				return true
			}
		}
		return false
	}
}
