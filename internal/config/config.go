// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Log       LogConfig              `mapstructure:"log"`
	HTTP      HTTPConfig             `mapstructure:"http"`
	Health    HealthConfig           `mapstructure:"health"`
	Telemetry TelemetryConfig        `mapstructure:"telemetry"`
	Database  DatabaseConfig         `mapstructure:"database"`
	NATS      NATSConfig             `mapstructure:"nats"`
	Chains    map[string]ChainConfig `mapstructure:"chains"`
	Assets    []AssetConfig          `mapstructure:"assets"`
	Pricing   PricingConfig          `mapstructure:"pricing"`
	Providers ProvidersConfig        `mapstructure:"providers"`
	Solver    SolverConfig           `mapstructure:"solver"`
	Envelope  EnvelopeConfig         `mapstructure:"envelope"`
	Auth      AuthConfig             `mapstructure:"auth"`
	Tracker   TrackerConfig          `mapstructure:"tracker"`
	Alerts    AlertsConfig           `mapstructure:"alerts"`
}

// Run modes.
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	// Mode selects which surfaces run: all, api or worker.
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// HTTPConfig holds the public API server settings.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// HealthConfig holds the health probe server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// TraceProvider is zipkin, otlp-grpc, otlp-http, console or empty.
	TraceProvider  string            `mapstructure:"trace_provider"`
	OTLPEndpoint   string            `mapstructure:"otlp_endpoint"`
	OTLPHeaders    map[string]string `mapstructure:"otlp_headers"`
	OTLPInsecure   bool              `mapstructure:"otlp_insecure"`
	PrometheusPort int               `mapstructure:"prometheus_port"`
}

// DatabaseConfig selects the Transaction Record store.
type DatabaseConfig struct {
	// Driver is postgres, sqlite or mongo.
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// NATSConfig holds JetStream settings for the settlement queues.
type NATSConfig struct {
	URL                string        `mapstructure:"url"`
	Stream             string        `mapstructure:"stream"`
	SourceSubject      string        `mapstructure:"source_subject"`
	DestinationSubject string        `mapstructure:"destination_subject"`
	DeadLetterSubject  string        `mapstructure:"dead_letter_subject"`
	MaxDeliver         int           `mapstructure:"max_deliver"`
	AckWait            time.Duration `mapstructure:"ack_wait"`
	RedeliveryDelay    time.Duration `mapstructure:"redelivery_delay"`
	MaxRedeliveryDelay time.Duration `mapstructure:"max_redelivery_delay"`
	DuplicateWindow    time.Duration `mapstructure:"duplicate_window"`
	Workers            int           `mapstructure:"workers"`
}

// ChainConfig describes one chain the service can read from or relay on.
type ChainConfig struct {
	ChainID uint64 `mapstructure:"chain_id"`
	RPCURL  string `mapstructure:"rpc_url"`
	// Executor is the payment contract that pulls approved tokens and calls the provider.
	Executor string        `mapstructure:"executor"`
	Relayer  RelayerConfig `mapstructure:"relayer"`
}

// RelayerConfig holds the gas-sponsoring signer for a chain.
type RelayerConfig struct {
	PrivateKey      string  `mapstructure:"private_key"`
	MaxGasPriceGwei float64 `mapstructure:"max_gas_price_gwei"`
	GasLimitBuffer  float64 `mapstructure:"gas_limit_buffer"`
}

// ExecutorAddress returns the executor as common.Address.
func (c ChainConfig) ExecutorAddress() common.Address {
	return common.HexToAddress(c.Executor)
}

// AssetConfig registers an additional asset or overrides a built-in one.
type AssetConfig struct {
	ChainID     uint64 `mapstructure:"chain_id"`
	Address     string `mapstructure:"address"`
	Symbol      string `mapstructure:"symbol"`
	Name        string `mapstructure:"name"`
	Decimals    uint8  `mapstructure:"decimals"`
	PriceSymbol string `mapstructure:"price_symbol"`
}

// PricingConfig holds price feed settings.
type PricingConfig struct {
	CacheTTL time.Duration     `mapstructure:"cache_ttl"`
	MaxAge   time.Duration     `mapstructure:"max_age"`
	Static   map[string]string `mapstructure:"static"`
	Binance  BinanceConfig     `mapstructure:"binance"`
}

// StaticPrices returns configured fixed USD prices keyed by upper-case symbol.
func (c PricingConfig) StaticPrices() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Static))
	for sym, v := range c.Static {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("pricing.static.%s: %w", sym, err)
		}
		out[strings.ToUpper(sym)] = d
	}
	return out, nil
}

// BinanceConfig holds Binance API configuration.
type BinanceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	WebSocketURL string        `mapstructure:"websocket_url"`
	Stream       bool          `mapstructure:"stream"`
	QuoteSymbol  string        `mapstructure:"quote_symbol"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ProvidersConfig holds the routing vendors.
type ProvidersConfig struct {
	Default  string         `mapstructure:"default"`
	LiFi     ProviderConfig `mapstructure:"lifi"`
	Squid    ProviderConfig `mapstructure:"squid"`
	DeBridge ProviderConfig `mapstructure:"debridge"`
	Intents  ProviderConfig `mapstructure:"intents"`
}

// ProviderConfig is the common shape of a vendor client.
type ProviderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	StatusURL   string        `mapstructure:"status_url"`
	APIKey      string        `mapstructure:"api_key"`
	Integrator  string        `mapstructure:"integrator"`
	SlippageBps int           `mapstructure:"slippage_bps"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// RateLimit is requests per minute; zero disables limiting.
	RateLimit int `mapstructure:"rate_limit"`
}

// SolverConfig holds the quote search parameters.
type SolverConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations"`
	BufferFactor       string        `mapstructure:"buffer_factor"`
	PlatformFeePercent string        `mapstructure:"platform_fee_percent"`
	QuoteTTL           time.Duration `mapstructure:"quote_ttl"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// BufferFactorDecimal returns the shortfall buffer as decimal.Decimal.
func (c SolverConfig) BufferFactorDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.BufferFactor)
}

// PlatformFeeRate returns the platform fee as a fraction (0.5% -> 0.005).
func (c SolverConfig) PlatformFeeRate() decimal.Decimal {
	return decimal.RequireFromString(c.PlatformFeePercent).Div(decimal.NewFromInt(100))
}

// EnvelopeConfig holds route envelope signing settings.
type EnvelopeConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// TrackerConfig holds in-invocation polling parameters.
type TrackerConfig struct {
	PollAttempts   int           `mapstructure:"poll_attempts"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// AlertsConfig holds the operator chat webhook.
type AlertsConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Channel    string        `mapstructure:"channel"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PAYBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

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
	// Secrets are usually injected without the prefix
	_ = v.BindEnv("app.environment", "PAYBRIDGE_APP_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("log.level", "PAYBRIDGE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("database.dsn", "PAYBRIDGE_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("nats.url", "PAYBRIDGE_NATS_URL", "NATS_URL")
	_ = v.BindEnv("envelope.secret", "PAYBRIDGE_ENVELOPE_SECRET", "ENVELOPE_SECRET")
	_ = v.BindEnv("auth.jwt_secret", "PAYBRIDGE_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("alerts.webhook_url", "PAYBRIDGE_ALERTS_WEBHOOK_URL", "ALERT_WEBHOOK_URL")
	_ = v.BindEnv("providers.lifi.api_key", "PAYBRIDGE_PROVIDERS_LIFI_API_KEY", "LIFI_API_KEY")
	_ = v.BindEnv("providers.squid.integrator", "PAYBRIDGE_PROVIDERS_SQUID_INTEGRATOR", "SQUID_INTEGRATOR_ID")
	_ = v.BindEnv("providers.intents.api_key", "PAYBRIDGE_PROVIDERS_INTENTS_API_KEY", "INTENTS_JWT")
	_ = v.BindEnv("telemetry.otlp_endpoint", "PAYBRIDGE_TELEMETRY_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "paybridge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.mode", "all")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.rate_limit", 10)
	v.SetDefault("http.rate_limit_burst", 20)

	v.SetDefault("health.port", 8081)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "paybridge")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:paybridge.db?_pragma=busy_timeout(5000)")
	v.SetDefault("database.mongo_database", "paybridge")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.stream", "SETTLEMENT")
	v.SetDefault("nats.source_subject", "settlement.source")
	v.SetDefault("nats.destination_subject", "settlement.destination")
	v.SetDefault("nats.dead_letter_subject", "settlement.deadletter")
	v.SetDefault("nats.max_deliver", 8)
	v.SetDefault("nats.ack_wait", "30s")
	v.SetDefault("nats.redelivery_delay", "5s")
	v.SetDefault("nats.max_redelivery_delay", "5m")
	v.SetDefault("nats.duplicate_window", "10m")
	v.SetDefault("nats.workers", 4)

	v.SetDefault("pricing.cache_ttl", "15s")
	v.SetDefault("pricing.max_age", "2m")
	v.SetDefault("pricing.static", map[string]string{"USD": "1", "USDC": "1", "USDT": "1", "DAI": "1"})
	v.SetDefault("pricing.binance.enabled", true)
	v.SetDefault("pricing.binance.base_url", "https://api.binance.com")
	v.SetDefault("pricing.binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("pricing.binance.stream", false)
	v.SetDefault("pricing.binance.quote_symbol", "USDT")
	v.SetDefault("pricing.binance.timeout", "5s")

	v.SetDefault("providers.default", "lifi")
	v.SetDefault("providers.lifi.enabled", true)
	v.SetDefault("providers.lifi.base_url", "https://li.quest")
	v.SetDefault("providers.lifi.integrator", "paybridge")
	v.SetDefault("providers.lifi.slippage_bps", 50)
	v.SetDefault("providers.lifi.timeout", "10s")
	v.SetDefault("providers.lifi.rate_limit", 100)
	v.SetDefault("providers.squid.enabled", true)
	v.SetDefault("providers.squid.base_url", "https://v2.api.squidrouter.com")
	v.SetDefault("providers.squid.slippage_bps", 100)
	v.SetDefault("providers.squid.timeout", "15s")
	v.SetDefault("providers.squid.rate_limit", 60)
	v.SetDefault("providers.debridge.enabled", true)
	v.SetDefault("providers.debridge.base_url", "https://dln.debridge.finance")
	v.SetDefault("providers.debridge.status_url", "https://stats-api.dln.trade")
	v.SetDefault("providers.debridge.timeout", "10s")
	v.SetDefault("providers.debridge.rate_limit", 60)
	v.SetDefault("providers.intents.enabled", false)
	v.SetDefault("providers.intents.base_url", "https://1click.chaindefuser.com")
	v.SetDefault("providers.intents.slippage_bps", 100)
	v.SetDefault("providers.intents.timeout", "10s")

	v.SetDefault("solver.max_iterations", 5)
	v.SetDefault("solver.buffer_factor", "1.1")
	v.SetDefault("solver.platform_fee_percent", "0.5")
	v.SetDefault("solver.quote_ttl", "21s")
	v.SetDefault("solver.timeout", "20s")

	v.SetDefault("envelope.issuer", "paybridge")

	v.SetDefault("tracker.poll_attempts", 10)
	v.SetDefault("tracker.poll_interval", "300ms")
	v.SetDefault("tracker.webhook_timeout", "10s")

	v.SetDefault("alerts.timeout", "5s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.App.Mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return fmt.Errorf("app.mode must be all, api or worker, got %q", c.App.Mode)
	}

	switch c.Database.Driver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("database.driver must be postgres, sqlite or mongo, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Envelope.Secret == "" {
		return fmt.Errorf("envelope.secret is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Solver.MaxIterations < 1 {
		return fmt.Errorf("solver.max_iterations must be >= 1")
	}
	buffer, err := decimal.NewFromString(c.Solver.BufferFactor)
	if err != nil || !buffer.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("solver.buffer_factor must be a decimal > 1, got %q", c.Solver.BufferFactor)
	}
	fee, err := decimal.NewFromString(c.Solver.PlatformFeePercent)
	if err != nil || fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("solver.platform_fee_percent must be in [0,100), got %q", c.Solver.PlatformFeePercent)
	}
	if c.Solver.QuoteTTL <= 0 {
		return fmt.Errorf("solver.quote_ttl must be positive")
	}

	if c.Tracker.PollAttempts < 1 {
		return fmt.Errorf("tracker.poll_attempts must be >= 1")
	}
	if c.NATS.MaxDeliver < 1 {
		return fmt.Errorf("nats.max_deliver must be >= 1")
	}

	if _, err := c.Pricing.StaticPrices(); err != nil {
		return err
	}

	for name, ch := range c.Chains {
		if ch.ChainID == 0 {
			return fmt.Errorf("chains.%s.chain_id is required", name)
		}
		if ch.Executor != "" && !common.IsHexAddress(ch.Executor) {
			return fmt.Errorf("invalid chains.%s.executor: %s", name, ch.Executor)
		}
	}

	return nil
}

// ChainByID returns the chain configured with the given chain id.
func (c *Config) ChainByID(id uint64) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ChainID == id {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// Addr returns host:port for a port number.
func Addr(port int) string {
	return ":" + strconv.Itoa(port)
}
