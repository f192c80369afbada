package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the KYC service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Agents     AgentsConfig     `mapstructure:"agents"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Screening  ScreeningConfig  `mapstructure:"screening"`
	Patterns   PatternsConfig   `mapstructure:"patterns"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Security   SecurityConfig   `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxRetries      int           `mapstructure:"max_retries"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LockRetryDelay  time.Duration `mapstructure:"lock_retry_delay"`
	ContextCacheTTL time.Duration `mapstructure:"context_cache_ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Brokers     []string      `mapstructure:"brokers"`
	ClientID    string        `mapstructure:"client_id"`
	AlertsTopic string        `mapstructure:"alerts_topic"`
	AuditTopic  string        `mapstructure:"audit_topic"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// StorageConfig holds object storage configuration for raw documents
type StorageConfig struct {
	Bucket   string        `mapstructure:"bucket"`
	Region   string        `mapstructure:"region"`
	Endpoint string        `mapstructure:"endpoint"` // MinIO / LocalStack
	Prefix   string        `mapstructure:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AgentsConfig holds the agent gateway endpoints and per-call budgets
type AgentsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	RoutingTimeout    time.Duration `mapstructure:"routing_timeout"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
	DocumentTimeout   time.Duration `mapstructure:"document_timeout"`
	OracleTimeout     time.Duration `mapstructure:"oracle_timeout"`
	KnowledgeTimeout  time.Duration `mapstructure:"knowledge_timeout"`
}

// RiskConfig holds risk engine configuration
type RiskConfig struct {
	ConfidenceThreshold     float64       `mapstructure:"confidence_threshold"`
	MaxAssessmentLatency    time.Duration `mapstructure:"max_assessment_latency"`
	BreakerMaxRequests      uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval         time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`
	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
}

// ScreeningConfig holds watchlist screening configuration
type ScreeningConfig struct {
	FuzzyMatchThreshold float64       `mapstructure:"fuzzy_match_threshold"`
	WatchlistRefresh    time.Duration `mapstructure:"watchlist_refresh"`
	SanctionsList       string        `mapstructure:"sanctions_list"` // JSON file path
	PEPList             string        `mapstructure:"pep_list"`       // JSON file path
	HomeCountry         string        `mapstructure:"home_country"`
	MaxScreeningLatency time.Duration `mapstructure:"max_screening_latency"`
}

// PatternsConfig holds transaction pattern detection configuration
type PatternsConfig struct {
	TrailingWindowDays int `mapstructure:"trailing_window_days"`

	// Structuring detection
	StructuringWindowHours int     `mapstructure:"structuring_window_hours"`
	StructuringThreshold   float64 `mapstructure:"structuring_threshold"`
	StructuringMinTxCount  int     `mapstructure:"structuring_min_tx_count"`

	// Rapid movement of funds
	RapidCyclingWindowMins int     `mapstructure:"rapid_cycling_window_mins"`
	RapidCyclingThreshold  float64 `mapstructure:"rapid_cycling_threshold"`
}

// ComplianceConfig holds consent and retention configuration
type ComplianceConfig struct {
	ConsentPurpose    string        `mapstructure:"consent_purpose"`
	DefaultLegalBasis string        `mapstructure:"default_legal_basis"`
	RetentionDays     int           `mapstructure:"retention_days"`
	LockWaitTimeout   time.Duration `mapstructure:"lock_wait_timeout"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Debug         bool    `mapstructure:"debug"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AuthEnabled    bool     `mapstructure:"auth_enabled"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	JWTIssuer      string   `mapstructure:"jwt_issuer"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	// A local .env is optional
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("KYC_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/kyc-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.Risk.ConfidenceThreshold <= 0 || c.Risk.ConfidenceThreshold > 1 {
		return errors.New("risk.confidence_threshold must be in (0, 1]")
	}
	if c.Compliance.ConsentPurpose == "" {
		return errors.New("compliance.consent_purpose is required")
	}
	if c.Compliance.RetentionDays <= 0 {
		return errors.New("compliance.retention_days must be positive")
	}
	if c.Security.AuthEnabled && c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required when auth is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.metrics_port", 9095)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", 10485760) // 10MB documents
	v.SetDefault("server.request_timeout", "110s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "kyc_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.query_timeout", "5s")

	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.lock_ttl", "2m")
	v.SetDefault("redis.lock_retry_delay", "100ms")
	v.SetDefault("redis.context_cache_ttl", "1h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "kyc-service")
	v.SetDefault("kafka.alerts_topic", "banking.kyc.alerts")
	v.SetDefault("kafka.audit_topic", "banking.audit.logs")
	v.SetDefault("kafka.timeout", "5s")
	v.SetDefault("kafka.max_retries", 3)

	// Storage defaults
	v.SetDefault("storage.bucket", "kyc-documents")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.prefix", "documents/")
	v.SetDefault("storage.timeout", "15s")

	// Agent gateway defaults
	v.SetDefault("agents.base_url", "http://localhost:8090")
	v.SetDefault("agents.api_key", "")
	v.SetDefault("agents.routing_timeout", "10s")
	v.SetDefault("agents.extraction_timeout", "30s")
	v.SetDefault("agents.document_timeout", "30s")
	v.SetDefault("agents.oracle_timeout", "30s")
	v.SetDefault("agents.knowledge_timeout", "5s")

	// Risk defaults
	v.SetDefault("risk.confidence_threshold", 0.7)
	v.SetDefault("risk.max_assessment_latency", "45s")
	v.SetDefault("risk.breaker_max_requests", 1)
	v.SetDefault("risk.breaker_interval", "60s")
	v.SetDefault("risk.breaker_timeout", "30s")
	v.SetDefault("risk.breaker_failure_threshold", 5)

	// Screening defaults
	v.SetDefault("screening.fuzzy_match_threshold", 0.85)
	v.SetDefault("screening.watchlist_refresh", "24h")
	v.SetDefault("screening.sanctions_list", "")
	v.SetDefault("screening.pep_list", "")
	v.SetDefault("screening.home_country", "")
	v.SetDefault("screening.max_screening_latency", "200ms")

	// Pattern detection defaults
	v.SetDefault("patterns.trailing_window_days", 90)
	v.SetDefault("patterns.structuring_window_hours", 24)
	v.SetDefault("patterns.structuring_threshold", 10000.0)
	v.SetDefault("patterns.structuring_min_tx_count", 3)
	v.SetDefault("patterns.rapid_cycling_window_mins", 60)
	v.SetDefault("patterns.rapid_cycling_threshold", 0.9)

	// Compliance defaults
	v.SetDefault("compliance.consent_purpose", "KYC_VERIFICATION")
	v.SetDefault("compliance.default_legal_basis", "LEGAL_OBLIGATION")
	v.SetDefault("compliance.retention_days", 2555) // 7 years
	v.SetDefault("compliance.lock_wait_timeout", "30s")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "kyc-service")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sampling_ratio", 0.1)
	v.SetDefault("telemetry.debug", false)

	// Security defaults; local setups opt out with KYC_SERVICE_SECURITY_AUTH_ENABLED=false
	v.SetDefault("security.auth_enabled", true)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_issuer", "")
	v.SetDefault("security.allowed_origins", []string{"*"})
}
