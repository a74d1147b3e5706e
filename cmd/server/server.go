package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/keyless/go-connector/internal/api"
	"github/keyless/go-connector/internal/api/router"
	"github/keyless/go-connector/internal/config"
	"github/keyless/go-connector/internal/util"
)

const (
	rpcFlag         = "rpc"
	listenFlag      = "listen"
	shutdownTimeout = 10 * time.Second
)

type Flags struct {
	RPCOverrides string
	Listen       string
}

func New() *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the server",
		Long: `Starts the provider and management server

Loads the persisted session, if any, and serves until SIGINT or SIGTERM.`,
		Run: func(_ *cobra.Command, _ []string) {
			runServer(flags)
		},
	}

	cmd.Flags().StringVar(&flags.RPCOverrides, rpcFlag, "", `RPC url overrides, e.g. "1=https://eth.example,137=https://polygon.example"`)
	cmd.Flags().StringVar(&flags.Listen, listenFlag, "", "Listen address, overrides KEYLESS_SERVER_LISTEN_ADDRESS")

	return cmd
}

func runServer(flags Flags) {
	cfg := config.DefaultServiceConfigFromEnv()
	for chainID, url := range config.ParseRPCOverrides(flags.RPCOverrides) {
		cfg.Chains.RPCOverrides[chainID] = url
	}
	if flags.Listen != "" {
		cfg.Echo.ListenAddress = flags.Listen
	}

	util.ConfigureGlobalLogger(cfg.Logger.Level, cfg.Logger.PrettyPrintConsole)

	if err := cfg.Echo.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid server configuration")
	}
	if cfg.Echo.AuthToken == "" {
		log.Warn().Msg("No API token configured, the management API is open to local processes")
	}

	s, err := api.InitNewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	router.Init(s)

	if err := s.Resume(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to resume persisted session")
	}

	go func() {
		if err := s.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info().Msg("Server closed")
			} else {
				log.Fatal().Err(err).Msg("Failed to start server")
			}
		}
	}()

	log.Info().Str("listenAddress", cfg.Echo.ListenAddress).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		log.Fatal().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
	}
}
