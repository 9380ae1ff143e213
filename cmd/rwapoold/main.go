package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rwapool/config"
	"rwapool/core/token"
	"rwapool/gateway/routes"
	"rwapool/native/pool"
	"rwapool/native/pool/store"
	"rwapool/native/pricing"
	"rwapool/observability/logging"
	otelobs "rwapool/observability/otel"
	"rwapool/storage"
)

const serviceName = "rwapoold"

func main() {
	configPath := flag.String("config", "rwapool.toml", "path to the daemon configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(serviceName, cfg.Environment, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(cfg.OTLPEndpoint) != "" {
		shutdown, err := otelobs.Init(ctx, otelobs.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			Traces:      true,
		})
		if err != nil {
			logger.Error("telemetry init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "error", err, "path", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	engine, err := buildEngine(cfg, store.New(db))
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", routes.NewRouter(engine, logger))

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(mux, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown", "error", err)
	}
}

// buildEngine assembles the pricing graph, custody stubs, ledger, and
// matching engine from the decoded configuration.
func buildEngine(cfg *config.Config, st *store.Store) (*pool.Engine, error) {
	stableID, err := parseAddress(cfg.Assets.Stable, "assets.Stable")
	if err != nil {
		return nil, err
	}
	rwaID, err := parseAddress(cfg.Assets.Rwa, "assets.Rwa")
	if err != nil {
		return nil, err
	}
	poolAddr, err := parseAddress(cfg.Assets.Pool, "assets.Pool")
	if err != nil {
		return nil, err
	}
	reserveAddr, err := parseAddress(cfg.Assets.Reserve, "assets.Reserve")
	if err != nil {
		return nil, err
	}

	graph := pricing.NewGraph()
	for _, feed := range cfg.Feeds {
		base, err := parseAddress(feed.Base, "feed base")
		if err != nil {
			return nil, err
		}
		quote, err := parseAddress(feed.Quote, "feed quote")
		if err != nil {
			return nil, err
		}
		manual := pricing.NewManualFeed(feed.Decimals)
		value, err := parseDecimal(feed.Price, feed.Decimals)
		if err != nil {
			return nil, fmt.Errorf("feed %s/%s: %w", feed.Base, feed.Quote, err)
		}
		manual.Set(value, time.Now())
		graph.Register(base, quote, pricing.NewFeedSource(
			manual, base, quote, nil, time.Duration(feed.MaxAgeSeconds)*time.Second,
		))
	}

	stable := token.NewAsset("STABLE", 18)
	rwa := token.NewAsset("RWA", 18)
	receipt := token.NewReceipt("TBY")
	desk := token.NewDesk(graph, stable, rwa, stableID, rwaID, poolAddr, reserveAddr)

	spread := new(big.Int).Mul(new(big.Int).SetUint64(cfg.Pool.SpreadBps), big.NewInt(1e14))

	ledger := pool.NewLedger(st, graph, stable.Bind(poolAddr), rwa.Bind(poolAddr), receipt, poolAddr, stableID, rwaID)
	ledger.SetStrategy(desk)
	ledger.SetSpread(spread)

	poolCfg := pool.Config{
		SwapBuffer:     time.Duration(cfg.Pool.SwapBufferHours) * time.Hour,
		MaturityLength: time.Duration(cfg.Pool.MaturityDays) * 24 * time.Hour,
		Leverage:       parseWad(cfg.Pool.Leverage),
		Spread:         spread,
	}
	if strings.TrimSpace(cfg.Pool.MinOrderSizeWei) != "" {
		minOrder, ok := new(big.Int).SetString(cfg.Pool.MinOrderSizeWei, 10)
		if !ok {
			return nil, fmt.Errorf("invalid pool.MinOrderSizeWei %q", cfg.Pool.MinOrderSizeWei)
		}
		poolCfg.MinOrderSize = minOrder
	}

	engine := pool.NewEngine(st, ledger, stable.Bind(poolAddr), receipt, poolAddr, poolCfg)
	for _, borrower := range cfg.Pool.Borrowers {
		addr, err := parseAddress(borrower, "pool borrower")
		if err != nil {
			return nil, err
		}
		engine.SetBorrowerApproval(addr, true)
	}
	return engine, nil
}

func parseAddress(raw, field string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", field, raw)
	}
	return common.HexToAddress(raw), nil
}

// parseDecimal converts a decimal string into fixed-point at the supplied
// precision, rounding down.
func parseDecimal(raw string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("value required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("invalid decimal %q", raw)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(rat.Num(), rat.Denom()), nil
}

func parseWad(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), big.NewInt(1e18))
}
