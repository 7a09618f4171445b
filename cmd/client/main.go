package main

import (
	"context"
	"fmt"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/client"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/service"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/store"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/tui"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("accounting-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	gateway := adapter.NewHTTPSyncGateway(adapter.HTTPClientConfig{
		BaseURL:  cfg.Adapter.ServerURL,
		Token:    cfg.Adapter.Token,
		DeviceID: cfg.Adapter.DeviceID,
		Timeout:  cfg.Adapter.RequestTimeout,
	})

	storages, err := store.NewClientStorages(context.Background(), cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	services := service.NewClientServices(gateway, storages, cfg, log)

	ui, err := tui.New(services, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating ui")
	}

	app, err := client.NewApp(services, ui, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
