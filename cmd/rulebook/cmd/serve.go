package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/rulebook/internal/core/api"
	"github.com/solatis/rulebook/internal/core/logging"
	"github.com/solatis/rulebook/internal/core/metrics"
	"github.com/solatis/rulebook/internal/core/server"
	"github.com/solatis/rulebook/internal/core/source"
	"github.com/solatis/rulebook/internal/rules"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC editor service",
	Long: `Start the gRPC editor service.

The editor state is seeded once from the configured source. When the source
is unset or cannot be read, the sample dataset is used instead.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "127.0.0.1", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().Int("metrics-port", 0, "Prometheus /metrics port (0 disables)")
	serveCmd.Flags().String("source", "", "rule set source: http(s) URL, catalog database URL or file path")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.Server.MetricsPort, _ = cmd.Flags().GetInt("metrics-port")
	}
	if cmd.Flags().Changed("source") {
		cfg.Source.URL, _ = cmd.Flags().GetString("source")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Component("serve")
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := source.Open(cfg.Source.URL)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	store := rules.NewStore(logging.Component("store"), recorder)
	ruleSets, _ := source.Load(ctx, src, cfg.Source.Timeout, logging.Component("source"))
	store.SetRuleSets(ruleSets)

	service, err := api.NewEditorService(store, &cfg.Server, logging.Component("api"))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, logging.Component("grpc"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info().
		Str("version", Version).
		Str("addr", cfg.Server.Address()).
		Str("session", string(store.Session())).
		Msg("starting rulebook editor")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	})
	if addr := cfg.Server.MetricsAddress(); addr != "" {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		g.Go(func() error {
			return metrics.Serve(gctx, addr, recorder.Handler())
		})
	}

	return g.Wait()
}
