package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Email     EmailConfig     `mapstructure:"email"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// SchedulerConfig contains report trigger scheduler configuration
type SchedulerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Timezone    string        `mapstructure:"timezone"`
	TickTimeout time.Duration `mapstructure:"tick_timeout"`
}

// ReportsConfig contains report rendering and artifact storage configuration
type ReportsConfig struct {
	ArtifactDir string `mapstructure:"artifact_dir"`
	BaseURL     string `mapstructure:"base_url"`
}

// EmailConfig contains SMTP sender configuration
type EmailConfig struct {
	SMTPHost  string        `mapstructure:"smtp_host"`
	SMTPPort  int           `mapstructure:"smtp_port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	FromEmail string        `mapstructure:"from_email"`
	FromName  string        `mapstructure:"from_name"`
	UseTLS    bool          `mapstructure:"use_tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DispatchConfig contains fan-out dispatcher configuration
type DispatchConfig struct {
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("REPORT_DISPATCHER")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}
	if smtpPassword := os.Getenv("SMTP_PASSWORD"); smtpPassword != "" {
		config.Email.Password = smtpPassword
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "report-dispatcher")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/dispatch.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")

	// Scheduler defaults (one tick per minute, matching HH:MM resolution)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.timezone", "UTC")
	viper.SetDefault("scheduler.tick_timeout", "55s")

	// Reports defaults
	viper.SetDefault("reports.artifact_dir", "./data/reports")
	viper.SetDefault("reports.base_url", "http://localhost:8081/reports")

	// Email defaults
	viper.SetDefault("email.smtp_host", "localhost")
	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.from_email", "reports@yourcompany.com")
	viper.SetDefault("email.from_name", "Analytics Reports")
	viper.SetDefault("email.use_tls", false)
	viper.SetDefault("email.timeout", "30s")

	// Dispatch defaults
	viper.SetDefault("dispatch.max_concurrent", 10)
	viper.SetDefault("dispatch.delivery_timeout", "10s")
	viper.SetDefault("dispatch.user_agent", "Report-Dispatcher/1.0")

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.file", "")
}

// Validate performs basic validation of the loaded configuration
func (c *Config) Validate() error {
	if c.Storage.Type == "" {
		return fmt.Errorf("storage type is required")
	}
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Dispatch.MaxConcurrent <= 0 {
		return fmt.Errorf("dispatch max_concurrent must be positive")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}
