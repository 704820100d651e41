package cmd

import (
	"errors"
	"io/fs"

	"github.com/EO-DataHub/eodhp-agent-runner/api/services"
	"github.com/EO-DataHub/eodhp-agent-runner/db"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/agents"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/appconfig"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/azure"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/events"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/metrics"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/validation"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var appCfg *appconfig.Config

// commonSetUp sets the log level, loads a local .env file if there is one
// and then the config.
func commonSetUp() {
	setLogging(logLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	var err error
	appCfg, err = appconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
}

// newClientFactory returns a factory building the Agent Service client with
// the default Azure credential chain.
func newClientFactory(cfg appconfig.AgentsConfig) services.ClientFactory {
	return func() (services.AgentsClient, error) {
		cred, err := azure.NewCredential(cfg)
		if err != nil {
			return nil, err
		}

		opts := &agents.ClientOptions{APIVersion: cfg.APIVersion}
		if cfg.Scope != "" {
			opts.Scopes = []string{cfg.Scope}
		}

		client, err := agents.NewClient(cfg.Endpoint, cred, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// newService wires the runner with its optional store and publisher. The
// returned func releases them.
func newService(reg prometheus.Registerer) (*services.Service, func()) {
	m, err := metrics.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	service := &services.Service{
		Config:    appCfg,
		NewClient: newClientFactory(appCfg.Agents),
		Metrics:   m,
		Validator: validation.New(),
	}

	var closers []func()

	if appCfg.Database.Source != "" {
		runDB, err := db.NewRunDB(appCfg.Database.Driver, appCfg.Database.Source, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize run database")
		}
		service.Store = runDB
		closers = append(closers, func() {
			if err := runDB.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close run database")
			}
		})
	} else {
		log.Info().Msg("No database configured; runs will not be recorded")
	}

	if appCfg.Pulsar.URL != "" && appCfg.Pulsar.TopicProducer != "" {
		publisher, err := events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		service.Publisher = publisher
		closers = append(closers, publisher.Close)
	}

	return service, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// openRunDB opens the configured audit database for the maintenance commands.
func openRunDB() *db.RunDB {
	runDB, err := db.NewRunDB(appCfg.Database.Driver, appCfg.Database.Source, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize run database")
	}
	return runDB
}
