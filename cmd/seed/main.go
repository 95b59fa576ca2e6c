package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"bookstore-service/config"
	"bookstore-service/internal/auth"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"

	"go.uber.org/zap"
)

// seed creates the admin and seller accounts. A role whose password is
// empty is skipped.
func main() {
	cfg := config.Load()

	adminUser := flag.String("admin-user", "admin", "admin username")
	adminPassword := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password")
	sellerUser := flag.String("seller-user", "seller", "seller username")
	sellerPassword := flag.String("seller-password", os.Getenv("SEED_SELLER_PASSWORD"), "seller password")
	flag.Parse()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	authService := service.NewAuthService(db, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))

	accounts := []struct {
		username, password, role string
	}{
		{*adminUser, *adminPassword, models.RoleAdmin},
		{*sellerUser, *sellerPassword, models.RoleSeller},
	}
	for _, a := range accounts {
		if a.password == "" {
			logger.Info("No password given, skipping", zap.String("role", a.role))
			continue
		}

		created, err := authService.EnsureUser(ctx, a.username, a.password, a.role)
		if err != nil {
			log.Fatalf("Failed to create %s %q: %v", a.role, a.username, err)
		}
		if created {
			logger.Info("User created", zap.String("username", a.username), zap.String("role", a.role))
		} else {
			logger.Info("User already exists", zap.String("username", a.username), zap.String("role", a.role))
		}
	}
}
