// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	ModeSimulation = "simulation"
	ModeReal       = "real"

	SourceAggregator = "aggregator"
	SourceUniswap    = "uniswap"
	SourceSynthetic  = "synthetic"

	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	API       APIConfig       `mapstructure:"api"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"`
}

// ChainConfig holds chain RPC settings.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	NativeSymbol   string        `mapstructure:"native_symbol"`
	NativeUSDPrice float64       `mapstructure:"native_usd_price"`
	RPCTimeout     time.Duration `mapstructure:"rpc_timeout"`
	GasCacheTTL    time.Duration `mapstructure:"gas_cache_ttl"`
}

// PricingConfig holds quote source settings.
type PricingConfig struct {
	QuoteTimeout   time.Duration    `mapstructure:"quote_timeout"`
	MaxConcurrency int              `mapstructure:"max_concurrency"`
	Venues         []VenueConfig    `mapstructure:"venues"`
	Aggregator     AggregatorConfig `mapstructure:"aggregator"`
	Uniswap        UniswapConfig    `mapstructure:"uniswap"`
	Synthetic      SyntheticConfig  `mapstructure:"synthetic"`
}

// VenueConfig binds a venue name to the source that quotes it.
type VenueConfig struct {
	Name      string `mapstructure:"name"`
	Source    string `mapstructure:"source"`
	Protocols string `mapstructure:"protocols"`
}

// AggregatorConfig holds DEX aggregator API settings.
type AggregatorConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	RouterAddress     string `mapstructure:"router_address"`
}

// UniswapConfig holds Uniswap V3 contract addresses.
type UniswapConfig struct {
	QuoterAddress string `mapstructure:"quoter_address"`
	RouterAddress string `mapstructure:"router_address"`
	FeeTiers      []int  `mapstructure:"fee_tiers"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *UniswapConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (c *UniswapConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// SyntheticConfig tunes the deterministic quote source.
type SyntheticConfig struct {
	Seed      uint64             `mapstructure:"seed"`
	JitterBps float64            `mapstructure:"jitter_bps"`
	BaseRates map[string]float64 `mapstructure:"base_rates"`
}

// TokenConfig describes one ERC-20.
type TokenConfig struct {
	Address  string  `mapstructure:"address"`
	Symbol   string  `mapstructure:"symbol"`
	Decimals uint8   `mapstructure:"decimals"`
	USDPrice float64 `mapstructure:"usd_price"`
}

// PairConfig is one scanned direction with its loan notional in TokenIn units.
type PairConfig struct {
	TokenIn  TokenConfig `mapstructure:"token_in"`
	TokenOut TokenConfig `mapstructure:"token_out"`
	Notional float64     `mapstructure:"notional"`
}

// ScannerConfig holds scan loop and profitability settings.
type ScannerConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	StalenessWindow   time.Duration `mapstructure:"staleness_window"`
	GrossThresholdPct float64       `mapstructure:"gross_threshold_pct"`
	NetThresholdPct   float64       `mapstructure:"net_threshold_pct"`
	MinProfitUSD      float64       `mapstructure:"min_profit_usd"`
	MaxGasGwei        float64       `mapstructure:"max_gas_gwei"`
	GasUnits          uint64        `mapstructure:"gas_units"`
	LoanFeeBps        float64       `mapstructure:"loan_fee_bps"`
	AutoExecute       bool          `mapstructure:"auto_execute"`
	Pairs             []PairConfig  `mapstructure:"pairs"`
}

// ExecutorConfig holds trade execution settings.
type ExecutorConfig struct {
	Mode               string        `mapstructure:"mode"`
	RealTradingEnabled bool          `mapstructure:"real_trading_enabled"`
	SignerKey          string        `mapstructure:"signer_key"`
	WalletAddress      string        `mapstructure:"wallet_address"`
	ContractAddress    string        `mapstructure:"contract_address"`
	FreshnessWindow    time.Duration `mapstructure:"freshness_window"`
	StageTimeout       time.Duration `mapstructure:"stage_timeout"`
	MinNativeBalance   float64       `mapstructure:"min_native_balance"`
	SlippageBps        int           `mapstructure:"slippage_bps"`
	MinProfitFloorBps  float64       `mapstructure:"min_profit_floor_bps"`
	NotifyThresholdUSD float64       `mapstructure:"notify_threshold_usd"`
	Workers            int           `mapstructure:"workers"`
	QueueSize          int           `mapstructure:"queue_size"`
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// NotifyConfig holds notification channels. Empty values disable a channel.
type NotifyConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// WebhookConfig holds a generic JSON webhook target.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// APIConfig holds the status API and health ports.
type APIConfig struct {
	Port       int `mapstructure:"port"`
	HealthPort int `mapstructure:"health_port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Decimal helpers keep float config values out of money math.

func (c *ScannerConfig) GrossThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.GrossThresholdPct)
}

func (c *ScannerConfig) NetThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.NetThresholdPct)
}

func (c *ScannerConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

func (c *ScannerConfig) MaxGasGweiDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxGasGwei)
}

func (c *ScannerConfig) LoanFeeBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.LoanFeeBps)
}

func (c *ChainConfig) NativeUSDPriceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.NativeUSDPrice)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("chain.rpc_url", "ARB_RPC_URL", "ETH_HTTP_URL")
	v.BindEnv("chain.chain_id", "ARB_CHAIN_ID")

	v.BindEnv("pricing.aggregator.base_url", "ARB_AGGREGATOR_URL")
	v.BindEnv("pricing.aggregator.api_key", "ARB_AGGREGATOR_API_KEY")

	v.BindEnv("executor.mode", "ARB_EXECUTOR_MODE")
	v.BindEnv("executor.real_trading_enabled", "ARB_REAL_TRADING_ENABLED")
	v.BindEnv("executor.signer_key", "ARB_SIGNER_KEY", "PRIVATE_KEY")
	v.BindEnv("executor.contract_address", "ARB_CONTRACT_ADDRESS")

	v.BindEnv("storage.driver", "ARB_STORAGE_DRIVER")
	v.BindEnv("storage.dsn", "ARB_STORAGE_DSN", "DATABASE_URL")

	v.BindEnv("notify.telegram.bot_token", "ARB_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram.chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("notify.webhook.url", "ARB_WEBHOOK_URL")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "flashloan-arb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("chain.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.native_symbol", "ETH")
	// Fixed approximation; there is no live native price feed.
	v.SetDefault("chain.native_usd_price", 2500)
	v.SetDefault("chain.rpc_timeout", "5s")
	v.SetDefault("chain.gas_cache_ttl", "3s")

	v.SetDefault("pricing.quote_timeout", "5s")
	v.SetDefault("pricing.max_concurrency", 8)
	v.SetDefault("pricing.venues", []map[string]any{
		{"name": "synthetic_a", "source": SourceSynthetic},
		{"name": "synthetic_b", "source": SourceSynthetic},
	})
	v.SetDefault("pricing.aggregator.base_url", "https://api.1inch.dev/swap/v6.0")
	v.SetDefault("pricing.aggregator.requests_per_minute", 60)
	v.SetDefault("pricing.aggregator.router_address", "0x111111125421cA6dc452d289314280a0f8842A65")
	v.SetDefault("pricing.uniswap.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("pricing.uniswap.router_address", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	v.SetDefault("pricing.uniswap.fee_tiers", []int{500, 3000, 10000})
	v.SetDefault("pricing.synthetic.seed", 42)
	v.SetDefault("pricing.synthetic.jitter_bps", 80)
	v.SetDefault("pricing.synthetic.base_rates", map[string]float64{"WETH-USDC": 2500})

	v.SetDefault("scanner.interval", "30s")
	v.SetDefault("scanner.staleness_window", "60s")
	v.SetDefault("scanner.gross_threshold_pct", 0.3)
	v.SetDefault("scanner.net_threshold_pct", 0.15)
	v.SetDefault("scanner.min_profit_usd", 1.5)
	v.SetDefault("scanner.max_gas_gwei", 60)
	v.SetDefault("scanner.gas_units", 350000)
	v.SetDefault("scanner.loan_fee_bps", 9)
	v.SetDefault("scanner.auto_execute", true)
	v.SetDefault("scanner.pairs", []map[string]any{
		{
			"token_in": map[string]any{
				"address":   "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
				"symbol":    "WETH",
				"decimals":  18,
				"usd_price": 2500,
			},
			"token_out": map[string]any{
				"address":   "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
				"symbol":    "USDC",
				"decimals":  6,
				"usd_price": 1,
			},
			"notional": 4,
		},
	})

	v.SetDefault("executor.mode", ModeSimulation)
	v.SetDefault("executor.real_trading_enabled", false)
	v.SetDefault("executor.freshness_window", "30s")
	v.SetDefault("executor.stage_timeout", "20s")
	v.SetDefault("executor.min_native_balance", 0.05)
	v.SetDefault("executor.slippage_bps", 50)
	v.SetDefault("executor.min_profit_floor_bps", 10)
	v.SetDefault("executor.notify_threshold_usd", 10)
	v.SetDefault("executor.workers", 2)
	v.SetDefault("executor.queue_size", 8)

	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.dsn", "file:flashloan-arb.db?_pragma=journal_mode(WAL)")

	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("notify.telegram.base_url", "https://api.telegram.org")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.health_port", 8081)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashloan-arb")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.Chain.NativeUSDPrice <= 0 {
		return fmt.Errorf("chain.native_usd_price must be positive")
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner.interval must be positive")
	}
	if c.Scanner.StalenessWindow <= 0 {
		return fmt.Errorf("scanner.staleness_window must be positive")
	}
	if len(c.Scanner.Pairs) == 0 {
		return fmt.Errorf("scanner.pairs cannot be empty")
	}
	for i, p := range c.Scanner.Pairs {
		if !common.IsHexAddress(p.TokenIn.Address) || !common.IsHexAddress(p.TokenOut.Address) {
			return fmt.Errorf("scanner.pairs[%d]: invalid token address", i)
		}
		if p.Notional <= 0 {
			return fmt.Errorf("scanner.pairs[%d]: notional must be positive", i)
		}
		if p.TokenIn.USDPrice <= 0 || p.TokenOut.USDPrice <= 0 {
			return fmt.Errorf("scanner.pairs[%d]: usd_price must be positive", i)
		}
	}

	if len(c.Pricing.Venues) < 2 {
		return fmt.Errorf("pricing.venues needs at least two venues to compare")
	}
	seen := make(map[string]bool, len(c.Pricing.Venues))
	for _, venue := range c.Pricing.Venues {
		if venue.Name == "" {
			return fmt.Errorf("pricing.venues: empty venue name")
		}
		if seen[venue.Name] {
			return fmt.Errorf("pricing.venues: duplicate venue %q", venue.Name)
		}
		seen[venue.Name] = true
		switch venue.Source {
		case SourceAggregator, SourceSynthetic:
		case SourceUniswap:
			if !common.IsHexAddress(c.Pricing.Uniswap.QuoterAddress) {
				return fmt.Errorf("invalid pricing.uniswap.quoter_address: %s", c.Pricing.Uniswap.QuoterAddress)
			}
			if !common.IsHexAddress(c.Pricing.Uniswap.RouterAddress) {
				return fmt.Errorf("invalid pricing.uniswap.router_address: %s", c.Pricing.Uniswap.RouterAddress)
			}
		default:
			return fmt.Errorf("pricing.venues: venue %q has unknown source %q", venue.Name, venue.Source)
		}
	}

	switch c.Executor.Mode {
	case ModeSimulation, ModeReal:
	default:
		return fmt.Errorf("executor.mode must be %q or %q", ModeSimulation, ModeReal)
	}
	if c.Executor.Mode == ModeReal {
		for _, venue := range c.Pricing.Venues {
			if venue.Source == SourceSynthetic {
				return fmt.Errorf("executor.mode %q cannot trade against synthetic venue %q", ModeReal, venue.Name)
			}
		}
	}
	// Contract address and signer key are checked per execution so a bad
	// value fails one attempt with a hint instead of the whole process.
	if c.Executor.WalletAddress != "" && !common.IsHexAddress(c.Executor.WalletAddress) {
		return fmt.Errorf("invalid executor.wallet_address: %s", c.Executor.WalletAddress)
	}

	switch c.Storage.Driver {
	case StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("storage.driver must be %q or %q", StorageSQLite, StoragePostgres)
	}

	return nil
}
