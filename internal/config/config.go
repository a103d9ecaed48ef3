package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port                string `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	MetricsAddr         string `mapstructure:"metrics_addr"`
	Development         bool   `mapstructure:"development"`
	LogLevel            string `mapstructure:"log_level"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JwtCfg struct {
	Secret string `mapstructure:"secret"`
}

type CryptoCfg struct {
	MasterPassword string `mapstructure:"master_password"`
	MasterSalt     string `mapstructure:"master_salt"`
}

type UsersCfg struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type MailCfg struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type Config struct {
	Server ServerCfg `mapstructure:"server"`
	Redis  RedisCfg  `mapstructure:"redis"`
	Kafka  KafkaCfg  `mapstructure:"kafka"`
	JWT    JwtCfg    `mapstructure:"jwt"`
	Crypto CryptoCfg `mapstructure:"crypto"`
	Users  UsersCfg  `mapstructure:"users"`
	Mail   MailCfg   `mapstructure:"mail"`
	// Derived
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UsersTimeout time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "4000"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "chats"
	}
	if cfg.Users.TimeoutSeconds == 0 {
		cfg.Users.TimeoutSeconds = 5
	}
	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.UsersTimeout = time.Duration(cfg.Users.TimeoutSeconds) * time.Second

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr missing")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret missing")
	}
	if cfg.Crypto.MasterPassword == "" {
		return errors.New("crypto.master_password missing")
	}
	if cfg.Crypto.MasterSalt == "" {
		return errors.New("crypto.master_salt missing")
	}
	if cfg.Users.BaseURL == "" {
		return errors.New("users.base_url missing")
	}
	return nil
}
