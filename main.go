package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"progressPalAPI/handlers"
	"progressPalAPI/internal/notification"
	"progressPalAPI/middleware"
	"progressPalAPI/services"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	sessionService      *services.SessionService
	dashboardService    *services.DashboardService
	feedService         *services.FeedService
	activityTypeService *services.ActivityTypeService
	friendshipService   *services.FriendshipService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	sessionService = services.NewSessionService(dbPool, notificationService)
	dashboardService = services.NewDashboardService(dbPool)
	feedService = services.NewFeedService(dbPool)
	activityTypeService = services.NewActivityTypeService(dbPool)
	friendshipService = services.NewFriendshipService(dbPool, notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	feedHandler := handlers.NewFeedHandler(feedService)
	activityTypeHandler := handlers.NewActivityTypeHandler(activityTypeService)
	friendshipHandler := handlers.NewFriendshipHandler(friendshipService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	go middleware.EvictIdleClients()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "progressPal-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER (REQUIRES AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandler.GetUser).Methods("GET")
	protected.HandleFunc("/users/{id}/sessions", sessionHandler.ListUserSessions).Methods("GET")

	protected.HandleFunc("/sessions", sessionHandler.CreateSession).Methods("POST")
	protected.HandleFunc("/sessions/{id}/pause", sessionHandler.PauseSession).Methods("PATCH")
	protected.HandleFunc("/sessions/{id}/resume", sessionHandler.ResumeSession).Methods("PATCH")
	protected.HandleFunc("/sessions/{id}/progress", sessionHandler.UpdateProgress).Methods("PATCH")
	protected.HandleFunc("/sessions/{id}/goal", sessionHandler.UpdateGoal).Methods("PATCH")
	protected.HandleFunc("/sessions/{id}/stop", sessionHandler.StopSession).Methods("PATCH")

	protected.HandleFunc("/me/sessions", sessionHandler.ListMySessions).Methods("GET")
	protected.HandleFunc("/me/sessions/live", sessionHandler.GetLiveSession).Methods("GET")

	protected.HandleFunc("/me/dashboard/summary", dashboardHandler.GetSummary).Methods("GET")
	protected.HandleFunc("/me/dashboard/by-activity-type", dashboardHandler.GetByActivityType).Methods("GET")
	protected.HandleFunc("/me/dashboard/trends", dashboardHandler.GetTrends).Methods("GET")

	protected.HandleFunc("/feed", feedHandler.GetFeed).Methods("GET")

	protected.HandleFunc("/activity-types", activityTypeHandler.ListActivityTypes).Methods("GET")
	protected.HandleFunc("/activity-types", activityTypeHandler.CreateActivityType).Methods("POST")
	protected.HandleFunc("/activity-types/{id}", activityTypeHandler.GetActivityType).Methods("GET")
	protected.HandleFunc("/activity-types/{id}", activityTypeHandler.UpdateActivityType).Methods("PUT")
	protected.HandleFunc("/activity-types/{id}", activityTypeHandler.DeleteActivityType).Methods("DELETE")

	protected.HandleFunc("/user/friends", friendshipHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/user/friends/{friendId}", friendshipHandler.RemoveFriend).Methods("DELETE")
	protected.HandleFunc("/user/friend-requests", friendshipHandler.GetFriendRequests).Methods("GET")
	protected.HandleFunc("/user/friend-requests", friendshipHandler.SendFriendRequest).Methods("POST")
	protected.HandleFunc("/user/friend-requests/{requesterId}/accept", friendshipHandler.AcceptFriendRequest).Methods("PATCH")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
