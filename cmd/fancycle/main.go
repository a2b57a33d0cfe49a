// fancycle receives SDM thermostat push notifications and runs the
// circulation fan for a fixed duration whenever a heating or cooling cycle
// ends.
package main

import (
	"log"

	"github.com/fancycle/fancycle/internal/api"
	"github.com/fancycle/fancycle/internal/config"
	"github.com/fancycle/fancycle/internal/sdm"
	"github.com/fancycle/fancycle/internal/secrets"
	"github.com/fancycle/fancycle/internal/webcore"
)

func main() {
	flags := webcore.ParseFlags("fancycle")
	if flags.ConfigPath == "" {
		log.Fatal("-config is required")
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	var provider secrets.Provider
	switch cfg.Secrets.Mode {
	case config.SecretsModeStatic:
		provider = secrets.Static(cfg.Secrets.Values)
	default:
		provider = secrets.NewClient(cfg.Secrets.BaseURL, cfg.Secrets.Project, cfg.Secrets.AuthToken)
	}

	srv := webcore.New(flags)
	handler := api.NewHandler(cfg,
		provider,
		sdm.NewTokenSource(cfg.OAuthTokenURL),
		sdm.NewCommandClient(cfg.SDMBaseURL, cfg.DeviceID),
		srv.Logger,
	)
	handler.Routes(srv.Router)

	srv.Logger.Info("fancycle ready",
		"port", flags.Port,
		"device_id", cfg.DeviceID,
		"fan_duration", cfg.FanDuration,
		"secrets_mode", cfg.Secrets.Mode,
	)

	if err := srv.Serve(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
