package main

import (
	"context"
	"log"

	"github.com/atelier-digital/atelier-backend/config"
	"github.com/atelier-digital/atelier-backend/internal/auth"
	"github.com/atelier-digital/atelier-backend/internal/bootstrap"
	"github.com/atelier-digital/atelier-backend/internal/cleanup"
	"github.com/atelier-digital/atelier-backend/internal/ratelimit"
	"github.com/atelier-digital/atelier-backend/internal/revalidate"
	"github.com/atelier-digital/atelier-backend/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := bootstrap.OpenRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.CredentialsPath, cfg.Admin.Emails)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}

	blobs, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	reval := revalidate.New(cfg.Revalidate.BaseURL, cfg.Revalidate.Secret, cfg.Revalidate.RPS)

	sweeper := cleanup.NewSweeper(blobs)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("cleanup: %v", err)
	}
	defer sweeper.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "atelier-backend",
		Version:     cfg.App.Version,
		DB:          db,
		Redis:       rdb,
		Verifier:    verifier,
		Blobs:       blobs,
		Revalidator: reval,
		RateLimit: ratelimit.Config{
			Window:      cfg.RateLimitWindow(),
			MaxRequests: cfg.RateLimit.MaxRequests,
			SweepEvery:  cfg.RateLimit.SweepEvery,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Upload.MaxFileBytes,
		MaxImages:      cfg.Upload.MaxImages,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	log.Fatal(r.Run(":" + cfg.Server.Port))
}
