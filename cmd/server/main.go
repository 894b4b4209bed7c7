package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"restaurant-pos/backend/internal/audit"
	auditrepo "restaurant-pos/backend/internal/audit/repository"
	"restaurant-pos/backend/internal/auth"
	authhandler "restaurant-pos/backend/internal/auth/handler"
	"restaurant-pos/backend/internal/config"
	"restaurant-pos/backend/internal/db"
	employeerepo "restaurant-pos/backend/internal/employee/repository"
	orderhandler "restaurant-pos/backend/internal/order/handler"
	orderrepo "restaurant-pos/backend/internal/order/repository"
	producthandler "restaurant-pos/backend/internal/product/handler"
	productrepo "restaurant-pos/backend/internal/product/repository"
	"restaurant-pos/backend/internal/security"
	"restaurant-pos/backend/internal/server"
	"restaurant-pos/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := otel.NewProviders(context.Background(), cfg.OTLPEndpoint, "pos-backend", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	employees := employeerepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), server.ClientIP)

	hasher := security.NewHasher(cfg.BcryptCost)
	lockout := auth.NewLockoutPolicy(employees, cfg.LockoutThreshold, cfg.LockoutWindow())
	registry := auth.NewRegistry(employees)
	liveness := auth.Liveness{Window: cfg.Liveness()}
	authSvc := auth.NewService(employees, hasher, lockout, registry, liveness, auditLogger)

	secureCookies := cfg.Env == "production"
	authH := authhandler.NewAuthHandler(authSvc, cfg.CookieTTL(), secureCookies, cfg.ValidRegistersList())
	productH := producthandler.NewProductHandler(productrepo.NewPostgresRepository(conn))
	orderH := orderhandler.NewOrderHandler(orderrepo.NewPostgresRepository(conn), cfg.TaxRate)

	router := server.NewRouter(authSvc, authH, productH, orderH)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
