// Package config loads the application configuration from a YAML file
// and OMNISWAP_-prefixed environment variables.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// RouterConfig points at the DEX aggregator API.
type RouterConfig struct {
	BaseURL string
	APIKey  string
}

// WebhookConfig is the swap.completed HTTP sink.
type WebhookConfig struct {
	URL    string
	Secret string
}

// KafkaConfig is the optional swap.completed event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig selects the Redis order store over the default file store.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// SignerConfig holds the per-family signing keys. Keys come from the
// environment or config file; the application never generates them.
type SignerConfig struct {
	EVMPrivateKey    string
	SolanaPrivateKey string
}

// RetryConfig tunes the shared retry schedule.
type RetryConfig struct {
	MaxRetries        int
	Delay             time.Duration
	BackoffMultiplier float64
}

// Config holds the application configuration.
type Config struct {
	RouterAPI RouterConfig
	BridgeURL string
	LlamaURL  string
	PerpsURL  string

	WalletAddress string
	StoragePath   string

	// RPCOverrides replaces a chain's default RPC endpoint, keyed by
	// chain id.
	RPCOverrides map[string]string

	// SpenderAddresses maps chain id to the aggregator router contract
	// for allowance checks.
	SpenderAddresses map[string]string

	Webhook WebhookConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
	Signer  SignerConfig
	Retry   RetryConfig

	LogCapacity int
}

// Load reads configuration from .omniswap.yaml (home directory or cwd)
// and the environment. Every field has a usable default except the
// signing keys.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".omniswap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetDefault("router.base_url", "https://www.okx.com")
	v.SetDefault("bridge_url", "https://li.quest")
	v.SetDefault("llama_url", "https://coins.llama.fi")
	v.SetDefault("perps_url", "https://api.hyperliquid.xyz")
	v.SetDefault("kafka.topic", "swap.completed")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.delay", "1s")
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("log_capacity", 500)

	v.SetEnvPrefix("OMNISWAP")
	v.AutomaticEnv()

	// Config file is optional; env and defaults suffice.
	_ = v.ReadInConfig()

	cfg := &Config{
		RouterAPI: RouterConfig{
			BaseURL: v.GetString("router.base_url"),
			APIKey:  v.GetString("router.api_key"),
		},
		BridgeURL: v.GetString("bridge_url"),
		LlamaURL:  v.GetString("llama_url"),
		PerpsURL:  v.GetString("perps_url"),

		WalletAddress: v.GetString("wallet_address"),
		StoragePath:   v.GetString("storage_path"),

		RPCOverrides:     v.GetStringMapString("rpc_overrides"),
		SpenderAddresses: v.GetStringMapString("spender_addresses"),

		Webhook: WebhookConfig{
			URL:    v.GetString("webhook.url"),
			Secret: v.GetString("webhook.secret"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Signer: SignerConfig{
			EVMPrivateKey:    v.GetString("signer.evm_private_key"),
			SolanaPrivateKey: v.GetString("signer.solana_private_key"),
		},
		Retry: RetryConfig{
			MaxRetries:        v.GetInt("retry.max_retries"),
			Delay:             v.GetDuration("retry.delay"),
			BackoffMultiplier: v.GetFloat64("retry.backoff_multiplier"),
		},

		LogCapacity: v.GetInt("log_capacity"),
	}

	return cfg, nil
}
