package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	MaxClients         int           `mapstructure:"max_clients" yaml:"max_clients"`
	WelcomeMessage     string        `mapstructure:"welcome_message" yaml:"welcome_message"`
	MaxLineLength      int           `mapstructure:"max_line_length" yaml:"max_line_length"`
	MaxNameLength      int           `mapstructure:"max_name_length" yaml:"max_name_length"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	AdminAddr          string        `mapstructure:"admin_addr" yaml:"admin_addr"`
	JournalPath        string        `mapstructure:"journal_path" yaml:"journal_path"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:               "",
		Port:               8000,
		MaxClients:         10,
		WelcomeMessage:     "Welcome! You successfully connected to the server",
		MaxLineLength:      1024,
		MaxNameLength:      32,
		WriteTimeout:       10 * time.Second,
		RateLimitPerMinute: 0,
		LogLevel:           "info",
		AdminAddr:          "",
		JournalPath:        "",
		ShutdownTimeout:    5 * time.Second,
	}
}

// Addr is the TCP listen address built from Host and Port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.MaxClients != 0 {
		c.MaxClients = other.MaxClients
	}
	if other.WelcomeMessage != "" {
		c.WelcomeMessage = other.WelcomeMessage
	}
	if other.MaxLineLength != 0 {
		c.MaxLineLength = other.MaxLineLength
	}
	if other.MaxNameLength != 0 {
		c.MaxNameLength = other.MaxNameLength
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.AdminAddr != "" {
		c.AdminAddr = other.AdminAddr
	}
	if other.JournalPath != "" {
		c.JournalPath = other.JournalPath
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate reports the first setting that cannot be served.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.MaxClients <= 0:
		return errors.New("max_clients must be positive")
	case c.MaxLineLength <= 0:
		return errors.New("max_line_length must be positive")
	case c.MaxNameLength <= 0:
		return errors.New("max_name_length must be positive")
	case c.WriteTimeout < 0:
		return errors.New("write_timeout must not be negative")
	case c.RateLimitPerMinute < 0:
		return errors.New("rate_limit_per_minute must not be negative")
	}
	return nil
}
