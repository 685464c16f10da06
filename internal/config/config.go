package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-driven configuration. Period values are
// plain seconds to stay compatible with the deployment env files.
type Config struct {
	BotToken     string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminChatIDs []int64 `envconfig:"ADMIN_CHAT_IDS"`
	LogLevel     string  `envconfig:"LOG_LEVEL" default:"info"`

	DBName        string `envconfig:"DB_NAME" default:"AppTrackerDB"`
	DBUser        string `envconfig:"DB_USER" default:"postgres"`
	DBPassword    string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBMinPoolSize int32  `envconfig:"DB_MIN_POOL_SIZE" default:"5"`
	DBMaxPoolSize int32  `envconfig:"DB_MAX_POOL_SIZE" default:"20"`

	RabbitHost     string `envconfig:"RABBIT_HOST" default:"localhost"`
	RabbitPort     int    `envconfig:"RABBIT_PORT" default:"5672"`
	RabbitUser     string `envconfig:"RABBIT_USER" default:"bunny_admin"`
	RabbitPassword string `envconfig:"RABBIT_PASSWORD" default:"password"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	RefreshPeriodSec   int `envconfig:"REFRESH_PERIOD" default:"3600"`
	SchedulerPeriodSec int `envconfig:"SCHEDULER_PERIOD" default:"300"`

	FetcherURL      string `envconfig:"FETCHER_URL" default:"https://frs.gov.cz/informace-o-stavu-rizeni/"`
	FetchWorkers    int    `envconfig:"FETCH_WORKERS" default:"3"`
	FetchTimeoutSec int    `envconfig:"FETCH_TIMEOUT" default:"90"`
	FetchRetries    int    `envconfig:"FETCH_RETRIES" default:"3"`

	NotifyTZ    string `envconfig:"NOTIFY_TZ" default:"Europe/Prague"`
	DedupTTLSec int    `envconfig:"DEDUP_TTL" default:"21600"`

	ConnectMaxRetries    int `envconfig:"CONNECT_MAX_RETRIES" default:"5"`
	ConnectRetryDelaySec int `envconfig:"CONNECT_RETRY_DELAY" default:"2"`
}

// Load reads config.env (if present) and then the environment.
func Load() (Config, error) {
	_ = LoadEnvFile("config.env")
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c Config) RabbitURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitUser, c.RabbitPassword, c.RabbitHost, c.RabbitPort)
}

func (c Config) RefreshPeriod() time.Duration {
	return time.Duration(c.RefreshPeriodSec) * time.Second
}

func (c Config) SchedulerPeriod() time.Duration {
	return time.Duration(c.SchedulerPeriodSec) * time.Second
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func (c Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSec) * time.Second
}

func (c Config) ConnectRetryDelay() time.Duration {
	return time.Duration(c.ConnectRetryDelaySec) * time.Second
}
