package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	bapigrpc "github.com/blockberries/bapi/grpc"
	"google.golang.org/grpc"

	"github.com/spf13/cobra"

	"github.com/blockberries/hostberry/app"
	"github.com/blockberries/hostberry/config"
	"github.com/blockberries/hostberry/grpcsvc"
	"github.com/blockberries/hostberry/metrics"
	"github.com/blockberries/hostberry/modules"
	"github.com/blockberries/hostberry/modules/bank"
	"github.com/blockberries/hostberry/modules/ibc"
	"github.com/blockberries/hostberry/modules/transfer"
	"github.com/blockberries/hostberry/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the application daemon",
	Long: `Start the hostberry application. The consensus engine connects on
the application port; relayers query IBC state on the gRPC port.

Example:
  hostberry start --host 127.0.0.1 --port 26658 --grpc-port 9093`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := createLogger(cfg.Logging)

	logger.Info("starting hostberry",
		"chain_id", cfg.Node.ChainID,
		"version", Version,
	)

	state, err := buildState(cfg.StateStore)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer state.Close()

	bankMod := bank.New()
	ibcMod := ibc.New(cfg.Node.RevisionNumber)
	transferMod, err := transfer.New(ibcMod, bankMod.Keeper())
	if err != nil {
		return fmt.Errorf("wiring transfer module: %w", err)
	}
	router, err := modules.NewRouter(bankMod, ibcMod, transferMod)
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	appMetrics := metrics.Metrics(metrics.NewNopMetrics())
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusMetrics("hostberry")
		appMetrics = prom
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", prom.HTTPHandler())
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	application := app.New(state, router,
		app.WithLogger(logger),
		app.WithMetrics(appMetrics),
		app.WithRetainVersions(cfg.StateStore.RetainVersions),
	)
	lifecycle := app.NewLifecycle(application)

	// Consensus-facing BAPI server.
	appAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLis, err := net.Listen("tcp", appAddr)
	if err != nil {
		return fmt.Errorf("binding application port %s: %w", appAddr, err)
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("application server listening", "addr", appAddr)
		srv := bapigrpc.NewGRPCServer(lifecycle)
		errCh <- srv.Serve(appLis, grpc.MaxRecvMsgSize(cfg.Server.ReadBufSize))
	}()

	// Relayer-facing query server.
	queryServer := grpcsvc.NewServer(application, grpcsvc.Options{
		Revision:       cfg.Node.RevisionNumber,
		MaxRecvMsgSize: cfg.Server.ReadBufSize,
		Logger:         logger,
	})
	queryAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	go func() {
		errCh <- queryServer.ListenAndServe(queryAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		queryServer.Stop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func buildState(cfg config.StateStoreConfig) (*store.State, error) {
	switch cfg.Backend {
	case "leveldb":
		provable, err := store.NewIavlStore(cfg.Path, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return store.NewState(provable, store.NewMemStore()), nil
	default:
		return store.NewMemoryState(cfg.CacheSize), nil
	}
}
