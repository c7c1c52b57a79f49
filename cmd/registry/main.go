package main

import (
	"context"
	"log"
	"time"

	"github.com/orgboard/portal-backend/config"
	"github.com/orgboard/portal-backend/internal/bootstrap"
	"github.com/orgboard/portal-backend/internal/db"
	cronjob "github.com/orgboard/portal-backend/internal/registry/cron"
	"github.com/orgboard/portal-backend/internal/registry/projects"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	scheduler := cronjob.NewScheduler(projects.NewRepo(database.Pool), 30*24*time.Hour)
	scheduler.Start()

	r := bootstrap.BuildRegistryRouter(bootstrap.RegistryDeps{
		ServiceName: "project-registry",
		Version:     cfg.App.Version,
		DB:          database.Pool,
	})

	log.Printf("registry listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
