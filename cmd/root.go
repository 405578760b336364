package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omniswap/config"
	"omniswap/pkg/chains"
	"omniswap/pkg/client"
	"omniswap/pkg/orders"
	"omniswap/pkg/pricing"
	"omniswap/pkg/retry"
	"omniswap/pkg/sink"
	"omniswap/pkg/tradelog"
)

var rootCmd = &cobra.Command{
	Use:   "omniswap",
	Short: "A CLI for multi-chain token swaps, limit orders and DCA plans",
	Long: `omniswap quotes and executes token swaps across EVM chains, Solana and
more, routes through a DEX aggregator, and runs price-triggered limit
orders and scheduled DCA plans in the background.

Examples:
  omniswap quote 100 USDC to WETH --chain ethereum
  omniswap swap 0.5 ETH to USDC --chain ethereum
  omniswap orders create --chain ethereum --from USDC --to WETH --amount 100 --condition below --target 1500
  omniswap dca create --chain base --from USDC --to WETH --amount 50 --every 24h --intervals 30
  omniswap run`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	color.Red("\nError: %v\n", err)
}

func printSuccess(message string) {
	color.Green("\n%s\n", message)
}

func exitOnError(err error) {
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// retryConfig maps the configured retry settings onto the shared retry
// schedule, falling back to the defaults for unset fields.
func retryConfig(a *app) retry.Config {
	cfg := retry.DefaultConfig()
	if a.cfg.Retry.MaxRetries > 0 {
		cfg.MaxRetries = a.cfg.Retry.MaxRetries
	}
	if a.cfg.Retry.Delay > 0 {
		cfg.Delay = a.cfg.Retry.Delay
	}
	if a.cfg.Retry.BackoffMultiplier > 0 {
		cfg.BackoffMultiplier = a.cfg.Retry.BackoffMultiplier
	}
	return cfg
}

// app bundles the wired services the commands share.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *chains.Registry
	router   *client.RouterClient
	bridge   *client.BridgeClient
	llama    *client.LlamaClient
	perps    *client.PerpsClient
	pricer   *pricing.Aggregator
	debugLog *tradelog.Log
	manager  *orders.Manager
	store    orders.Store

	dispatcher *sink.Dispatcher
	kafka      *sink.KafkaSink
}

// newApp loads configuration and constructs the service graph.
func newApp(verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logCfg := zap.NewProductionConfig()
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := logCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	registry := chains.NewRegistry(cfg.RPCOverrides)
	router := client.NewRouterClient(cfg.RouterAPI.BaseURL, cfg.RouterAPI.APIKey)
	bridge := client.NewBridgeClient(cfg.BridgeURL)
	llama := client.NewLlamaClient(cfg.LlamaURL)
	perps := client.NewPerpsClient(cfg.PerpsURL)
	pricer := pricing.NewAggregator(router, llama, log)
	debugLog := tradelog.New(cfg.LogCapacity)

	var store orders.Store
	if cfg.Redis.Enabled {
		store = orders.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	} else {
		store, err = orders.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
	}
	manager := orders.NewManager(store, log)

	var sinks []sink.Sink
	var kafkaSink *sink.KafkaSink
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, sink.NewWebhookSink(cfg.Webhook.URL, cfg.Webhook.Secret))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink = sink.NewKafkaSink(sink.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		sinks = append(sinks, kafkaSink)
	}
	dispatcher := sink.NewDispatcher(log, sinks...)

	return &app{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		router:     router,
		bridge:     bridge,
		llama:      llama,
		perps:      perps,
		pricer:     pricer,
		debugLog:   debugLog,
		manager:    manager,
		store:      store,
		dispatcher: dispatcher,
		kafka:      kafkaSink,
	}, nil
}

// Close flushes the logger and releases external connections.
func (a *app) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if closer, ok := a.store.(*orders.RedisStore); ok {
		closer.Close()
	}
	_ = a.log.Sync()
}
