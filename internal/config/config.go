package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	StorageDriverMinio = "minio"
	StorageDriverLocal = "local"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Driver        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
	LocalDir      string
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
	RefreshTTL      time.Duration
	MaxSessions     int
}

type PaymentConfig struct {
	SecretKey          string
	WebhookSecret      string
	AppURL             string
	Currency           string
	PriceCents         int64
	ProductName        string
	ProductDescription string
	IdempotencyTTL     time.Duration
}

type MembershipConfig struct {
	Duration time.Duration
}

type UploadConfig struct {
	MaxBytes int64
	Prefix   string
}

type JobsConfig struct {
	Enabled          bool
	SessionPurgeSpec string
	OrphanUploadSpec string
	OrphanUploadAge  time.Duration
}

// BootstrapConfig describes the administrator created by "couponctl seed"
// and by the memory store at startup.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string
	Insecure    bool
	SamplerRate float64
}

type MetricsConfig struct {
	Enabled   bool
	Namespace string
	Path      string
}

type AppConfig struct {
	Environment      string
	Store            string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Payment          PaymentConfig
	Membership       MembershipConfig
	Uploads          UploadConfig
	Jobs             JobsConfig
	Bootstrap        BootstrapConfig
	Log              LogConfig
	Tracing          TracingConfig
	Metrics          MetricsConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) PaymentEnabled() bool {
	return c.Payment.SecretKey != ""
}

func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("COUPONME")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store {
	case StoreDriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when store is %q", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store)
	}

	switch c.Storage.Driver {
	case StorageDriverMinio, StorageDriverLocal:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Security.JWTAccessSecret == "" {
		return fmt.Errorf("security.jwtaccesssecret is required")
	}
	if c.Payment.SecretKey != "" && c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment.webhooksecret is required when payment.secretkey is set")
	}
	if c.Membership.Duration <= 0 {
		return fmt.Errorf("membership.duration must be positive")
	}
	return nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("store", StoreDriverPostgres)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.bucket", "couponme-uploads")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.localdir", "./public/uploads")
	v.SetDefault("storage.publicbaseurl", "/uploads")

	v.SetDefault("security.jwtaccessttl", "30m")
	v.SetDefault("security.refreshttl", "720h") // 30 days
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("payment.appurl", "http://localhost:3000")
	v.SetDefault("payment.currency", "eur")
	v.SetDefault("payment.pricecents", 1000)
	v.SetDefault("payment.productname", "CouponMe Annual Membership")
	v.SetDefault("payment.productdescription", "Unlock unlimited access to all coupon codes for one year")
	v.SetDefault("payment.idempotencyttl", "168h")

	v.SetDefault("membership.duration", "8760h") // 365 days

	v.SetDefault("uploads.maxbytes", 5*1024*1024)
	v.SetDefault("uploads.prefix", "coupons")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.sessionpurgespec", "0 0 3 * * *")
	v.SetDefault("jobs.orphanuploadspec", "0 15 * * * *")
	v.SetDefault("jobs.orphanuploadage", "24h")

	v.SetDefault("bootstrap.adminname", "Administrator")

	v.SetDefault("log.level", "")
	v.SetDefault("log.maxsizemb", 100)
	v.SetDefault("log.maxbackups", 3)
	v.SetDefault("log.maxagedays", 7)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.servicename", "couponme-api")
	v.SetDefault("tracing.protocol", "http")
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.samplerrate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "couponme")
	v.SetDefault("metrics.path", "/metrics")
}
