// Command swap-init provisions a fresh swap deployment: it opens the state
// database and spawns the factory and resolver instances from the config.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JadeSamLee/cosmos-swap/config"
	"github.com/JadeSamLee/cosmos-swap/contracts"
	"github.com/JadeSamLee/cosmos-swap/observability/logging"
	"github.com/JadeSamLee/cosmos-swap/storage"
)

func main() {
	cfgPath := flag.String("config", "swap.toml", "path to the TOML config")
	serveMetrics := flag.Bool("metrics", false, "serve the Prometheus endpoint after init")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	host := contracts.NewHost(db, logger)

	factoryMsg, err := json.Marshal(map[string]string{
		"owner":           cfg.Owner,
		"source_template": contracts.TemplateSourceEscrow,
		"dest_template":   contracts.TemplateDestEscrow,
	})
	if err != nil {
		logger.Error("encode factory init", "error", err)
		os.Exit(1)
	}
	factoryAddr, err := host.Instantiate(contracts.TemplateFactory, cfg.Owner, "factory", factoryMsg, nil)
	if err != nil {
		logger.Error("spawn factory", "error", err)
		os.Exit(1)
	}

	resolverMsg, err := json.Marshal(map[string]interface{}{
		"owner":    cfg.Owner,
		"factory":  factoryAddr,
		"relayers": cfg.Relayers,
	})
	if err != nil {
		logger.Error("encode resolver init", "error", err)
		os.Exit(1)
	}
	resolverAddr, err := host.Instantiate(contracts.TemplateResolver, cfg.Owner, "resolver", resolverMsg, nil)
	if err != nil {
		logger.Error("spawn resolver", "error", err)
		os.Exit(1)
	}

	logger.Info("deployment initialized",
		"factory", factoryAddr,
		"resolver", resolverAddr,
		"relayers", len(cfg.Relayers),
	)
	fmt.Printf("factory:  %s\nresolver: %s\n", factoryAddr, resolverAddr)

	if *serveMetrics && cfg.MetricsAddress != "" {
		logger.Info("serving metrics", "address", cfg.MetricsAddress)
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddress, nil); err != nil {
			logger.Error("metrics server", "error", err)
			os.Exit(1)
		}
	}
}
