package main

import (
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/orgboard/portal-backend/config"
	"github.com/orgboard/portal-backend/internal/bootstrap"
	"github.com/orgboard/portal-backend/internal/portal/coordinator"
	"github.com/orgboard/portal-backend/internal/portal/directory"
	"github.com/orgboard/portal-backend/internal/portal/gateway"
	"github.com/orgboard/portal-backend/internal/portal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	gw := gateway.NewClient(cfg.Registry.BaseURL, gateway.Options{
		Timeout:   cfg.Registry.Timeout,
		RateLimit: cfg.Registry.RateLimit,
		Burst:     cfg.Registry.Burst,
	})
	dir := directory.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout, rdb, cfg.Redis.DirectoryTTL)

	st := store.New(gw)
	coord := coordinator.New(st, dir)

	r := bootstrap.BuildPortalRouter(bootstrap.PortalDeps{
		ServiceName: "board-portal",
		Version:     cfg.App.Version,
		BoardKey:    cfg.Portal.BoardKey,
		Coordinator: coord,
		Store:       st,
	})

	log.Printf("portal listening on :%s (registry at %s)", cfg.Server.Port, cfg.Registry.BaseURL)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
