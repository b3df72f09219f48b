// Package config loads server settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"strings"
)

const EnvPrefix = "MTP"

var ErrInvalidConfig = errors.New("invalid configuration")

type Database struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres memory"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
}

type Migrations struct {
	Dir string `mapstructure:"dir"`
	DSN string `mapstructure:"dsn"`
}

type Limits struct {
	Messages int `mapstructure:"messages" validate:"min=1"`
	Users    int `mapstructure:"users" validate:"min=1"`
}

type APIVersions struct {
	MinVersion string `mapstructure:"min_version" validate:"required"`
	MaxVersion string `mapstructure:"max_version" validate:"required"`
}

type HashSize struct {
	Password int `mapstructure:"password" validate:"min=1,max=64"`
	AuthID   int `mapstructure:"auth_id" validate:"min=1,max=64"`
}

type Auth struct {
	TokenFormat string `mapstructure:"token_format" validate:"oneof=digest jwt"`
	JWTSecret   string `mapstructure:"jwt_secret" validate:"required_if=TokenFormat jwt"`
}

type Kafka struct {
	Brokers      string `mapstructure:"brokers"`
	UpdatesTopic string `mapstructure:"updates_topic" validate:"required"`
}

// BrokerList splits the comma separated broker addresses. An empty list
// disables update publishing.
func (k Kafka) BrokerList() []string {
	addrs := make([]string, 0)
	for _, addr := range strings.Split(k.Brokers, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

type Config struct {
	Host       string      `mapstructure:"host" validate:"required"`
	Port       int         `mapstructure:"port" validate:"min=1,max=65535"`
	Log        string      `mapstructure:"log"`
	Database   Database    `mapstructure:"database"`
	Migrations Migrations  `mapstructure:"migrations"`
	Limits     Limits      `mapstructure:"limits"`
	API        APIVersions `mapstructure:"api"`
	HashSize   HashSize    `mapstructure:"hash_size"`
	Auth       Auth        `mapstructure:"auth"`
	Kafka      Kafka       `mapstructure:"kafka"`
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var defaults = map[string]interface{}{
	"host":                "0.0.0.0",
	"port":                8080,
	"log":                 "info",
	"config":              "",
	"database.driver":     "postgres",
	"database.dsn":        "",
	"migrations.dir":      "",
	"migrations.dsn":      "",
	"limits.messages":     100,
	"limits.users":        100,
	"api.min_version":     "1.0",
	"api.max_version":     "1.9",
	"hash_size.password":  32,
	"hash_size.auth_id":   16,
	"auth.token_format":   "digest",
	"auth.jwt_secret":     "",
	"kafka.brokers":       "",
	"kafka.updates_topic": "mtp-updates",
}

// legacyEnv lists unprefixed variable names still honoured for a key.
var legacyEnv = map[string]string{
	"database.dsn":        "DB_DSN",
	"migrations.dir":      "MIGRATIONS_DIR",
	"migrations.dsn":      "MIGRATIONS_DSN",
	"kafka.brokers":       "KAFKA_BROKERS",
	"kafka.updates_topic": "UPDATES_TOPIC",
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"host":            "host",
	"port":            "port",
	"log":             "log",
	"config":          "config",
	"database-driver": "database.driver",
}

func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("host", "0.0.0.0", "host on which server will be started")
	flags.Int("port", 8080, "port on which server will be started")
	flags.String("log", "info", "log level")
	flags.String("config", "", "path to a yaml, toml or json config file")
	flags.String("database-driver", "postgres", "record store backend: postgres or memory")
}

// Setup prepares v to read defaults, environment and the flags registered by
// RegisterFlags.
func Setup(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return err
		}
	}

	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the optional config file named by the "config" key and returns
// the validated configuration.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.API.MinVersion > cfg.API.MaxVersion {
		return nil, fmt.Errorf("%w: api.min_version %q is greater than api.max_version %q",
			ErrInvalidConfig, cfg.API.MinVersion, cfg.API.MaxVersion)
	}

	return &cfg, nil
}
