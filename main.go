package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dlc-link/dlc-observer/config"
	"github.com/dlc-link/dlc-observer/core"
	"github.com/dlc-link/dlc-observer/core/oracle"
	"github.com/dlc-link/dlc-observer/database"
	"github.com/dlc-link/dlc-observer/network"
	"github.com/dlc-link/dlc-observer/server"
	"github.com/sisu-network/lib/log"
)

func initialize(cfg *config.Observer) database.Database {
	db := database.NewDb(cfg)
	if err := db.Init(); err != nil {
		panic(err)
	}

	return db
}

func main() {
	configPath := flag.String("config", "./observer.toml", "path to the toml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	db := initialize(cfg)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attestor := oracle.NewAttestor(cfg.OracleUrl, network.NewHttp())
	processor := core.NewProcessor(cfg, db, attestor)
	if err := processor.Start(ctx); err != nil {
		panic(err)
	}

	api := server.NewApi(processor.Attestor(), processor.Registry(), processor.Reconciler())
	s := server.NewServer(api, cfg.ServerPort, cfg.DevEndpointsEnabled)
	if err := s.Run(ctx); err != nil {
		log.Error("Server stopped, err = ", err)
	}
}
