package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"
	"time"

	"github.com/EO-DataHub/eodhp-agent-runner/api/handlers"
	"github.com/EO-DataHub/eodhp-agent-runner/api/middleware"
	services "github.com/EO-DataHub/eodhp-agent-runner/api/services"
	docs "github.com/EO-DataHub/eodhp-agent-runner/docs"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/appconfig"
	"github.com/EO-DataHub/eodhp-agent-runner/internal/settings"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpSwagger "github.com/swaggo/http-swagger"
)

var localSettingsPath string

// @title Agent Runner API
// @version v1
// @description Runs an Azure AI Foundry agent on a new thread and returns the conversation.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the custom handler for the Azure Functions host",
	Run: func(cmd *cobra.Command, args []string) {

		setLogging(logLevel)

		// Outside the host, export local.settings.json the way `func start` does
		if localSettingsPath != "" {
			localSettings, err := settings.LoadLocalSettings(localSettingsPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load local settings")
			}
			if err := localSettings.Apply(); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply local settings")
			}
		}

		// Load .env and the config file and set up logging
		commonSetUp()

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		service, cleanup := newService(registry)
		defer cleanup()

		r := newRouter(appCfg, service, registry)
		log.Info().Str("route", appCfg.FunctionPath()).Msg("Function route registered")

		// The Functions host tells the handler which port to listen on
		if v := os.Getenv(settings.PortKey); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				log.Fatal().Err(err).Str("value", v).Msgf("%s is not a port number", settings.PortKey)
			}
			port = p
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		server := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			log.Info().Msg(fmt.Sprintf("Server started at %s", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("could not start server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			log.Info().Msg("Shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("server stopped with error")
		}
		log.Info().Msg("Server stopped")
	},
}

// newRouter registers the function, metrics and docs routes. CORS wraps the
// whole router so the router's own 404 and 405 answers carry the headers too.
func newRouter(cfg *appconfig.Config, service *services.Service, registry *prometheus.Registry) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix(cfg.BasePath).Subrouter()
	api.Use(middleware.WithLogger)
	api.Use(middleware.WithInvocationID)
	api.Use(middleware.WithClaims)
	api.Use(middleware.WithMetrics(service.Metrics))

	// Function route
	api.HandleFunc("/"+cfg.Function.Name, handlers.RunAgent(service)).Methods(http.MethodPost, http.MethodOptions)

	// Metrics
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Docs
	docs.SwaggerInfo.Host = cfg.Host
	docs.SwaggerInfo.BasePath = cfg.BasePath
	r.PathPrefix(cfg.DocsPath).Handler(httpSwagger.Handler(
		httpSwagger.URL(path.Join(cfg.DocsPath, "/doc.json")),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)).Methods(http.MethodGet)

	return middleware.CORS(cfg.CORS.AllowedOrigins)(r)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on; "+settings.PortKey+" takes precedence")
	serveCmd.Flags().StringVar(&localSettingsPath, "local-settings", "", "path to a local.settings.json to export before loading the config")
}
