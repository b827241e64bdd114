package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int
	LogLevel    string

	Auth     AuthConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Table    TableConfig
	Lock     LockConfig
	MinIO    MinIOConfig
	Mail     MailConfig
	Workflow WorkflowConfig
}

// AuthConfig - откуда берётся личность пользователя
type AuthConfig struct {
	Mode    string // jwt | header | dev
	Header  string
	DevUser string
}

type JWTConfig struct {
	Token         string
	ExpiresIn     time.Duration
	SigningMethod jwt.SigningMethod
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Password    string
	Port        int
	User        string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// TableConfig - хранилище листа заявок
type TableConfig struct {
	Driver string // memory | postgres | sqlite | minio
	DSN    string
	Sheet  string
	// Columns - номера колонок с единицы, пусто - порядок по умолчанию
	Columns      map[string]int
	HeaderRow    bool
	HeaderLayout bool
	TimeLayout   string
	Timezone     string
}

type LockConfig struct {
	Driver       string // memory | redis
	PollInterval time.Duration
	Timeout      time.Duration
	TTL          time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MailConfig struct {
	Driver        string // smtp | log
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	SubjectPrefix string
	BaseURL       string
	Workers       int
}

type WorkflowConfig struct {
	AllowSelfApproval bool
	RequireDetails    bool
}

const (
	envJWTSecret = "JWT_SECRET"
	envDSN       = "DB_DSN"

	envRedisHost = "REDIS_HOST"
	envRedisPort = "REDIS_PORT"
	envRedisUser = "REDIS_USER"
	envRedisPass = "REDIS_PASSWORD"

	envMinIOAccessKey = "MINIO_ACCESS_KEY"
	envMinIOSecretKey = "MINIO_SECRET_KEY"

	envSMTPUser = "SMTP_USER"
	envSMTPPass = "SMTP_PASSWORD"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("servicehost", "0.0.0.0")
	v.SetDefault("serviceport", 8080)
	v.SetDefault("loglevel", "info")

	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("auth.header", "X-Forwarded-Email")
	v.SetDefault("jwt.expiresin", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.dialtimeout", 10*time.Second)
	v.SetDefault("redis.readtimeout", 10*time.Second)

	v.SetDefault("table.driver", "memory")
	v.SetDefault("table.sheet", "approvals")
	v.SetDefault("table.headerrow", true)
	v.SetDefault("table.timelayout", "2006/01/02 15:04:05")
	v.SetDefault("table.timezone", "Asia/Tokyo")

	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.pollinterval", 10*time.Millisecond)
	v.SetDefault("lock.timeout", 10*time.Second)
	v.SetDefault("lock.ttl", 30*time.Second)

	v.SetDefault("minio.bucket", "ringi")

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.subjectprefix", "[Ringi]")
	v.SetDefault("mail.workers", 4)
}

func NewConfig() (*Config, error) {
	var err error

	configName := "config"
	_ = godotenv.Load()
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	err = v.ReadInConfig()
	if err != nil {
		// без файла работаем на значениях по умолчанию
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warn("config file not found, using defaults")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err = applyEnv(cfg); err != nil {
		return nil, err
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("config parsed")

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// подписываем токены только HS256, ключ общий с провайдером
	cfg.JWT.SigningMethod = jwt.SigningMethodHS256
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if s := os.Getenv(envJWTSecret); s != "" {
		cfg.JWT.Token = s
	}
	if dsn := os.Getenv(envDSN); dsn != "" {
		cfg.Table.DSN = dsn
	}

	if host := os.Getenv(envRedisHost); host != "" {
		cfg.Redis.Host = host
		cfg.Redis.Enabled = true
	}
	if port := os.Getenv(envRedisPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("redis port must be int value: %w", err)
		}
		cfg.Redis.Port = p
	}
	if pass := os.Getenv(envRedisPass); pass != "" {
		cfg.Redis.Password = pass
	}
	if user := os.Getenv(envRedisUser); user != "" {
		cfg.Redis.User = user
	}

	if key := os.Getenv(envMinIOAccessKey); key != "" {
		cfg.MinIO.AccessKey = key
	}
	if key := os.Getenv(envMinIOSecretKey); key != "" {
		cfg.MinIO.SecretKey = key
	}

	if user := os.Getenv(envSMTPUser); user != "" {
		cfg.Mail.User = user
	}
	if pass := os.Getenv(envSMTPPass); pass != "" {
		cfg.Mail.Password = pass
	}
	return nil
}

// Validate проверяет сочетания настроек, которые иначе всплывут только при первом запросе
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case "jwt":
		if c.JWT.Token == "" {
			return errors.New("auth.mode=jwt requires jwt.token or JWT_SECRET")
		}
	case "header":
		if c.Auth.Header == "" {
			return errors.New("auth.mode=header requires auth.header")
		}
	case "dev":
		if c.Auth.DevUser == "" {
			return errors.New("auth.mode=dev requires auth.devuser")
		}
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}

	switch c.Table.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Table.DSN == "" {
			return fmt.Errorf("table.driver=%s requires table.dsn or DB_DSN", c.Table.Driver)
		}
	case "minio":
		if c.MinIO.Endpoint == "" {
			return errors.New("table.driver=minio requires minio.endpoint")
		}
	default:
		return fmt.Errorf("unknown table.driver %q", c.Table.Driver)
	}

	switch c.Lock.Driver {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("lock.driver=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown lock.driver %q", c.Lock.Driver)
	}

	switch c.Mail.Driver {
	case "log":
	case "smtp":
		if c.Mail.Host == "" || c.Mail.From == "" {
			return errors.New("mail.driver=smtp requires mail.host and mail.from")
		}
	default:
		return fmt.Errorf("unknown mail.driver %q", c.Mail.Driver)
	}

	if c.Table.HeaderLayout && !c.Table.HeaderRow {
		return errors.New("table.headerlayout=true requires table.headerrow=true")
	}

	if c.Table.Timezone != "" {
		if _, err := time.LoadLocation(c.Table.Timezone); err != nil {
			return fmt.Errorf("table.timezone: %w", err)
		}
	}
	return nil
}

// Location - часовой пояс дат в листе
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Table.Timezone)
	if err != nil || c.Table.Timezone == "" {
		return time.UTC
	}
	return loc
}
