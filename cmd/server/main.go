package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/social-network/internal/config"
	"github.com/Dias221467/social-network/internal/database"
	"github.com/Dias221467/social-network/internal/handlers"
	"github.com/Dias221467/social-network/internal/jobs"
	"github.com/Dias221467/social-network/internal/repository"
	cron "github.com/Dias221467/social-network/internal/scheduler"
	"github.com/Dias221467/social-network/internal/services"
	"github.com/Dias221467/social-network/pkg/email"
	"github.com/Dias221467/social-network/pkg/logger"
	"github.com/Dias221467/social-network/pkg/middleware"
	"github.com/Dias221467/social-network/pkg/password"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const reconcileTimeout = 10 * time.Minute

func main() {
	// Load configuration from .env file and the environment
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Get().Fatalf("Invalid configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	log := logger.Get()
	log.Info("Logger initialized")

	// Registered first so it runs after every other deferred cleanup.
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}
	defer func() {
		if err := database.Disconnect(db); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(indexCtx, db); err != nil {
		cancel()
		log.WithError(err).Error("Index creation error")
		exitCode = 1
		return
	}
	cancel()

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Without Redis, relationship updates on the same pair are not serialised.
	var locker services.PairLocker
	if cfg.RedisURI != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			log.WithError(err).Error("Redis connection error")
			exitCode = 1
			return
		}
		defer redisClient.Close()
		locker = repository.NewRedisPairLocker(redisClient, cfg.PairLockTTL)
	} else {
		log.Warn("REDIS_URI not set, relationship pair locking disabled")
	}

	mailer := email.NewSMTPMailer(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPSender,
		Timeout:  cfg.SMTPTimeout,
	})
	hasher := password.NewBcryptHasher(cfg.BcryptCost)

	// --- Services ---
	activityService := services.NewActivityService(activityRepo)
	userService := services.NewUserService(userRepo, hasher, mailer, activityService, cfg.Credentials())
	authService := services.NewAuthService(userRepo, hasher, activityService, cfg.Credentials())
	friendService := services.NewFriendService(userRepo, locker, activityService)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, activityService)
	authHandler := handlers.NewAuthHandler(authService)
	friendHandler := handlers.NewFriendHandler(friendService)

	if cfg.ReconcileSchedule != "" {
		c, err := cron.StartReconcileCron(cfg.ReconcileSchedule, reconcileTimeout, jobs.NewGraphReconciler(userRepo))
		if err != nil {
			log.WithError(err).Error("Reconcile cron error")
			exitCode = 1
			return
		}
		defer c.Stop()
	}

	// Initialize Gorilla Mux router
	router := mux.NewRouter()
	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	// Public auth routes
	router.HandleFunc("/auth/register", userHandler.RegisterUserHandler).Methods("POST")
	router.HandleFunc("/auth/verify-otp", userHandler.VerifyOTPHandler).Methods("POST")
	router.HandleFunc("/auth/send-otp", userHandler.SendOTPHandler).Methods("POST")
	router.HandleFunc("/auth/login", authHandler.LoginHandler).Methods("POST")
	router.HandleFunc("/auth/login-with-otp", authHandler.LoginWithOTPHandler).Methods("POST")
	router.Handle("/auth/logout", auth(http.HandlerFunc(authHandler.LogoutHandler))).Methods("POST")

	// Protected user routes (only authenticated users can access)
	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(auth)
	protectedUserRoutes.HandleFunc("/{id}", userHandler.GetUserHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}", userHandler.UpdateUserHandler).Methods("PATCH")
	protectedUserRoutes.HandleFunc("/{id}/password", userHandler.ChangePasswordHandler).Methods("PUT")
	protectedUserRoutes.HandleFunc("/{id}/activities", userHandler.GetActivitiesHandler).Methods("GET")

	// Friend routes
	protectedFriendRoutes := router.PathPrefix("/friends").Subrouter()
	protectedFriendRoutes.Use(auth)
	protectedFriendRoutes.HandleFunc("", friendHandler.GetFriendsHandler).Methods("GET")
	protectedFriendRoutes.HandleFunc("/requests", friendHandler.GetPendingRequestsHandler).Methods("GET")
	protectedFriendRoutes.HandleFunc("/requests/sent", friendHandler.GetSentRequestsHandler).Methods("GET")
	protectedFriendRoutes.HandleFunc("/{id}/request", friendHandler.SendFriendRequestHandler).Methods("POST")
	protectedFriendRoutes.HandleFunc("/{id}/request", friendHandler.CancelFriendRequestHandler).Methods("DELETE")
	protectedFriendRoutes.HandleFunc("/{id}/accept", friendHandler.AcceptFriendRequestHandler).Methods("POST")
	protectedFriendRoutes.HandleFunc("/{id}/received", friendHandler.DeleteReceivedFriendRequestHandler).Methods("DELETE")
	protectedFriendRoutes.HandleFunc("/{id}", friendHandler.RemoveFriendHandler).Methods("DELETE")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		// deferred disconnects still run
		log.WithError(err).Error("HTTP server error")
		exitCode = 1
		return
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}
}
