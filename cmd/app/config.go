package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"UD_referral_bot/internal/repository"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
	envFile      = ".env"
)

type Config struct {
	Database repository.Config `mapstructure:"database"`
	Server   ServerConfig      `mapstructure:"server"`

	TelegramAuth TelegramAuthConfig `mapstructure:"telegramAuth"`

	Distribution DistributionConfig `mapstructure:"distribution"`
	Onboarding   OnboardingConfig   `mapstructure:"onboarding"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `mapstructure:"telegramBotToken"`
	DebugMode        bool   `mapstructure:"debugMode"`
}

type DistributionConfig struct {
	Schedule   string        `mapstructure:"schedule"`
	Timezone   string        `mapstructure:"timezone"`
	Workers    int           `mapstructure:"workers"`
	RunTimeout time.Duration `mapstructure:"runTimeout"`
	MediaDir   string        `mapstructure:"mediaDir"`
}

type OnboardingConfig struct {
	Schedule   string         `mapstructure:"schedule"`
	WindowDays int            `mapstructure:"windowDays"`
	Messages   map[int]string `mapstructure:"messages"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.shutdownTimeout", 15*time.Second)
	v.SetDefault("distribution.schedule", "0 9 * * *")
	v.SetDefault("distribution.timezone", "Europe/Moscow")
	v.SetDefault("distribution.workers", 1)
	v.SetDefault("distribution.runTimeout", time.Hour)
	v.SetDefault("distribution.mediaDir", "media")
	v.SetDefault("onboarding.schedule", "0 12 * * *")
	v.SetDefault("onboarding.windowDays", 7)
	v.SetDefault("logLevel", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Location resolves the distribution time zone, which also defines "today".
func (c DistributionConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
