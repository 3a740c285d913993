package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const devSecretKey = "clave-segura-fisiolife"

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// URL selects postgres. When empty the embedded sqlite file at SQLitePath is used.
	URL               string
	SQLitePath        string
	SQLiteBusyTimeout time.Duration
	MaxOpen           int
	MaxIdle           int
	ConnMaxLifetime   time.Duration
}

func (c DatabaseConfig) UsePostgres() bool {
	return strings.TrimSpace(c.URL) != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type MailConfig struct {
	Server        string
	Port          int
	UseTLS        bool
	Username      string
	Password      string
	DefaultSender string
	Timeout       time.Duration
}

// Recipient is the clinic inbox that receives booking notifications.
func (c MailConfig) Recipient() string {
	if c.DefaultSender != "" {
		return c.DefaultSender
	}
	return c.Username
}

func (c MailConfig) Enabled() bool {
	return strings.TrimSpace(c.Server) != "" && c.Recipient() != ""
}

type SecurityConfig struct {
	SecretKey       string
	SessionTTL      time.Duration
	CookieName      string
	CookieSecure    bool
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

type AdminConfig struct {
	Email        string
	Name         string
	Password     string
	PasswordHash string
	// PasswordFile receives a generated password when neither Password nor PasswordHash is set.
	PasswordFile string
}

type NotifyConfig struct {
	// Mode is "inline" (in-process dispatcher) or "stream" (redis stream consumed by cmd/worker).
	Mode      string
	QueueSize int
	Workers   int
}

type JobsConfig struct {
	Enabled    bool
	PurgeSpec  string
	DigestSpec string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRatio  float64
}

type WorkerConfig struct {
	LogLevel      string
	ClaimInterval time.Duration
	// MaxDeliveries is how many times an entry is handed to the processor before it is dead-lettered.
	MaxDeliveries int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Mail             MailConfig
	Security         SecurityConfig
	Admin            AdminConfig
	Notify           NotifyConfig
	Jobs             JobsConfig
	Telemetry        TelemetryConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("FISIOLIFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

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

	cfg.Database.URL = NormalizeDatabaseURL(cfg.Database.URL)
	cfg.Admin.Email = strings.ToLower(strings.TrimSpace(cfg.Admin.Email))
	cfg.Notify.Mode = strings.ToLower(strings.TrimSpace(cfg.Notify.Mode))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.IsProduction() && (c.Security.SecretKey == "" || c.Security.SecretKey == devSecretKey) {
		return errors.New("config: SECRET_KEY must be set in production")
	}
	if c.Security.SecretKey == "" {
		return errors.New("config: security.secretkey is empty")
	}
	if c.Admin.Email == "" {
		return errors.New("config: admin.email is empty")
	}
	switch c.Notify.Mode {
	case "inline":
	case "stream":
		if !c.Redis.Enabled() {
			return errors.New("config: notify.mode=stream requires redis.addr")
		}
	default:
		return fmt.Errorf("config: unknown notify.mode %q", c.Notify.Mode)
	}
	return nil
}

// NormalizeDatabaseURL rewrites SQLAlchemy-style driver prefixes to a plain postgres URL.
func NormalizeDatabaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	for _, prefix := range []string{"postgresql+psycopg2://", "postgres+psycopg2://"} {
		if strings.HasPrefix(url, prefix) {
			return "postgres://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

// bindLegacyEnv keeps the environment variable names the clinic deployment already uses.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"http.port":              {"FISIOLIFE_HTTP_PORT", "PORT"},
		"database.url":           {"FISIOLIFE_DATABASE_URL", "DATABASE_URL"},
		"redis.addr":             {"FISIOLIFE_REDIS_ADDR", "REDIS_ADDR"},
		"security.secretkey":     {"FISIOLIFE_SECURITY_SECRETKEY", "SECRET_KEY"},
		"mail.server":            {"FISIOLIFE_MAIL_SERVER", "MAIL_SERVER"},
		"mail.port":              {"FISIOLIFE_MAIL_PORT", "MAIL_PORT"},
		"mail.usetls":            {"FISIOLIFE_MAIL_USETLS", "MAIL_USE_TLS"},
		"mail.username":          {"FISIOLIFE_MAIL_USERNAME", "MAIL_USERNAME"},
		"mail.password":          {"FISIOLIFE_MAIL_PASSWORD", "MAIL_PASSWORD"},
		"mail.defaultsender":     {"FISIOLIFE_MAIL_DEFAULTSENDER", "MAIL_DEFAULT_SENDER"},
		"admin.email":            {"FISIOLIFE_ADMIN_EMAIL", "ADMIN_EMAIL"},
		"admin.name":             {"FISIOLIFE_ADMIN_NAME", "ADMIN_NOMBRE"},
		"admin.password":         {"FISIOLIFE_ADMIN_PASSWORD", "ADMIN_PASSWORD"},
		"admin.passwordhash":     {"FISIOLIFE_ADMIN_PASSWORDHASH", "ADMIN_PASSWORD_HASH"},
		"admin.passwordfile":     {"FISIOLIFE_ADMIN_PASSWORDFILE", "ADMIN_PASSWORD_FILE"},
		"telemetry.otlpendpoint": {"FISIOLIFE_TELEMETRY_OTLPENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlitepath", "instance/fisiolife.db")
	v.SetDefault("database.sqlitebusytimeout", "5s")
	v.SetDefault("database.maxopen", 10)
	v.SetDefault("database.maxidle", 2)
	v.SetDefault("database.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "clinic:notifications")
	v.SetDefault("redis.group", "clinic-notifiers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("mail.server", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.usetls", true)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.defaultsender", "")
	v.SetDefault("mail.timeout", "10s")

	v.SetDefault("security.secretkey", devSecretKey)
	v.SetDefault("security.sessionttl", "12h")
	v.SetDefault("security.cookiename", "fisiolife_session")
	v.SetDefault("security.cookiesecure", false)
	v.SetDefault("security.loginratelimit", 10)
	v.SetDefault("security.loginratewindow", "1m")

	v.SetDefault("admin.email", "admin@fisiolife.com")
	v.SetDefault("admin.name", "Administrador")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.passwordhash", "")
	v.SetDefault("admin.passwordfile", "instance/admin_password.txt")

	v.SetDefault("notify.mode", "inline")
	v.SetDefault("notify.queuesize", 64)
	v.SetDefault("notify.workers", 2)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.purgespec", "0 0 * * * *")
	v.SetDefault("jobs.digestspec", "0 0 7 * * *")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.servicename", "fisiolife-api")
	v.SetDefault("telemetry.otlpendpoint", "localhost:4317")
	v.SetDefault("telemetry.sampleratio", 1.0)

	v.SetDefault("worker.loglevel", "info")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.maxdeliveries", 5)
}
