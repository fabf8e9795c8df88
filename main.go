package main

import (
	"flag"
	stdlog "log"

	"go.uber.org/zap"

	"github.com/telekom/smtp-relay/pkg/api"
	"github.com/telekom/smtp-relay/pkg/config"
	"github.com/telekom/smtp-relay/pkg/ratelimit"
	"github.com/telekom/smtp-relay/pkg/relay"
	"github.com/telekom/smtp-relay/pkg/version"
)

func main() {
	debug := false
	configPath := ""
	flag.BoolVar(&debug, "debug", false, "enables debug mode")
	flag.StringVar(&configPath, "config", "", "path to the config file (default ./config.yaml)")
	flag.Parse()

	log := setupLogger(debug)
	log.With("version", version.Version).Info("Starting smtp-relay")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading config for smtp-relay: %v", err)
	}
	cfg.Defaults()

	if debug {
		log.Infof("%#v", cfg)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Window:      cfg.RateLimitWindow(),
		MaxRequests: cfg.RateLimit.MaxRequests,
	})
	dispatcher := relay.NewDispatcher(log, cfg.SMTPDialTimeout())

	server := api.NewServer(log.Desugar(), cfg, debug)
	err = server.RegisterAll([]api.APIController{
		api.NewRelayController(log, cfg, dispatcher, limiter.Middleware()),
	})
	if err != nil {
		log.Fatalf("Error registering relay controller: %v", err)
	}

	log.With("listenAddress", cfg.Server.ListenAddress).Info("Listening")
	server.Listen()
}

func setupLogger(debug bool) *zap.SugaredLogger {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}
