package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentpay/config"
	"agentpay/core/state"
	"agentpay/native/bank"
	"agentpay/native/escrow"
	"agentpay/native/reputation"
	"agentpay/observability"
	"agentpay/observability/logging"
	"agentpay/observability/metrics"
	"agentpay/storage"
)

func main() {
	configFile := flag.String("config", "./escrow.toml", "Path to the configuration file")
	listenAddr := flag.String("listen", ":8645", "Listen address for the read-only query API")
	metricsAddr := flag.String("metrics", ":9464", "Listen address for the Prometheus endpoint (empty disables)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("AGENTPAY_ENV"))
	logger := logging.Setup("escrowd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	engine, rep, err := buildEngine(cfg, db, logger)
	if err != nil {
		logger.Error("Failed to build escrow engine", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              *listenAddr,
		Handler:           newRouter(engine, rep),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Query API listening", slog.String("addr", *listenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Query API failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	logger.Info("Escrow engine ready", slog.String("data_dir", cfg.DataDir))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")
	_ = server.Close()
}

func buildEngine(cfg *config.Config, db storage.Database, logger *slog.Logger) (*escrow.Engine, *reputation.Ledger, error) {
	params, err := cfg.EngineParams()
	if err != nil {
		return nil, nil, err
	}
	policy, err := cfg.FeeEnginePolicy()
	if err != nil {
		return nil, nil, err
	}
	verifier, admin, collector, vault, err := cfg.EngineIdentities()
	if err != nil {
		return nil, nil, err
	}

	manager := state.NewManager(db)
	rep := reputation.NewLedger(manager)
	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(bank.NewLedger(manager, vault))
	engine.SetReputation(rep)
	if err := engine.SetParams(params); err != nil {
		return nil, nil, err
	}
	if err := engine.SetFeePolicy(policy); err != nil {
		return nil, nil, err
	}
	if err := engine.SetIdentities(verifier, admin, collector, vault); err != nil {
		return nil, nil, err
	}
	engine.SetEmitter(observability.MultiEmitter{
		observability.NewEventLogger(logger),
		metrics.Escrow(),
	})
	return engine, rep, nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Metrics endpoint listening", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics endpoint failed", slog.Any("error", err))
	}
}
