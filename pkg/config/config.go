package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Stripe   StripeConfig
	Checkout CheckoutConfig
	Media    MediaConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SHOPLANE_APP_ENV" required:"true"`
	Port         string   `envconfig:"SHOPLANE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SHOPLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SHOPLANE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SHOPLANE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPLANE_DB_DSN"`
	Driver string `envconfig:"SHOPLANE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPLANE_DB_HOST"`
	Port     int    `envconfig:"SHOPLANE_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPLANE_DB_USER"`
	Password string `envconfig:"SHOPLANE_DB_PASSWORD"`
	Name     string `envconfig:"SHOPLANE_DB_NAME"`
	SSLMode  string `envconfig:"SHOPLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPLANE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPLANE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOPLANE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOPLANE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOPLANE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOPLANE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOPLANE_ARGON_KEY_LEN" default:"32"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"SHOPLANE_STRIPE_API_KEY"`
	Secret     string `envconfig:"SHOPLANE_STRIPE_WEBHOOK_SECRET"`
	Env        string `envconfig:"SHOPLANE_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"SHOPLANE_STRIPE_SUCCESS_URL" default:"http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL  string `envconfig:"SHOPLANE_STRIPE_CANCEL_URL" default:"http://localhost:3000/payment-cancel"`
	Currency   string `envconfig:"SHOPLANE_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	GatewayTimeout        time.Duration `envconfig:"SHOPLANE_CHECKOUT_GATEWAY_TIMEOUT" default:"15s"`
	WebhookIdempotencyTTL time.Duration `envconfig:"SHOPLANE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type MediaConfig struct {
	MaxImageBytes int64 `envconfig:"SHOPLANE_MAX_IMAGE_BYTES" default:"5242880"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPLANE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range fallbackDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
