package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/internal/dispatch"
	"github.com/smartdevs17/report-dispatcher/internal/metrics"
	"github.com/smartdevs17/report-dispatcher/internal/notify"
	"github.com/smartdevs17/report-dispatcher/internal/report"
	"github.com/smartdevs17/report-dispatcher/internal/scheduler"
	"github.com/smartdevs17/report-dispatcher/internal/server"
	"github.com/smartdevs17/report-dispatcher/internal/storage"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config     *config.Config
	logger     *logrus.Logger
	storage    storage.Storage
	renderer   *report.TemplateRenderer
	artifacts  *report.FileArtifactStore
	email      *notify.SMTPSender
	scheduler  *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Manager
	server     *server.HTTPServer
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.metrics = metrics.NewManager()

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initializeReporting(); err != nil {
		return fmt.Errorf("failed to initialize reporting: %w", err)
	}

	if err := app.initializeScheduler(); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	app.dispatcher = dispatch.NewDispatcher(&app.config.Dispatch, app.storage, app.metrics.GetPrometheusMetrics())

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage initializes the storage layer
func (app *Application) initializeStorage() error {
	app.logger.Info("Initializing storage layer")

	var err error
	app.storage, err = storage.NewStorage(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	if err := app.storage.Connect(); err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	if err := app.storage.Migrate(); err != nil {
		return fmt.Errorf("failed to run storage migrations: %w", err)
	}

	app.storage = storage.NewStorageWithMetrics(app.storage, app.metrics)

	app.logger.Info("Storage layer initialized successfully")
	return nil
}

// initializeReporting initializes the renderer, artifact store and email sender
func (app *Application) initializeReporting() error {
	app.logger.Info("Initializing report pipeline")

	var err error
	app.renderer, err = report.NewTemplateRenderer(nil)
	if err != nil {
		return fmt.Errorf("failed to create report renderer: %w", err)
	}

	app.artifacts, err = report.NewFileArtifactStore(app.config.Reports.ArtifactDir, app.config.Reports.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}

	app.email = notify.NewSMTPSender(&app.config.Email)

	app.logger.WithFields(logrus.Fields{
		"artifact_dir": app.config.Reports.ArtifactDir,
		"smtp_host":    app.config.Email.SMTPHost,
	}).Info("Report pipeline initialized successfully")
	return nil
}

// initializeScheduler initializes the report scheduler
func (app *Application) initializeScheduler() error {
	app.logger.Info("Initializing report scheduler")

	var err error
	app.scheduler, err = scheduler.NewScheduler(
		&app.config.Scheduler,
		app.storage,
		app.renderer,
		app.artifacts,
		app.email,
		app.metrics.GetPrometheusMetrics(),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	app.logger.Info("Report scheduler initialized successfully")
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	var err error
	app.server, err = server.NewHTTPServer(
		&app.config.Server,
		app.storage,
		app.scheduler,
		app.dispatcher,
		app.renderer,
		app.artifacts,
		app.email,
		app.metrics,
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	app.logger.Info("HTTP server initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting Report Dispatcher")

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if app.config.Scheduler.Enabled {
		if err := app.scheduler.Start(app.ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		app.logger.Warn("Scheduler disabled, reports will only run via the API")
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"storage":        app.config.Storage.Type,
		"timezone":       app.config.Scheduler.Timezone,
	}).Info("Report Dispatcher started successfully")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping Report Dispatcher")

	app.cancel()

	// Stop components in reverse order
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.scheduler != nil {
		if err := app.scheduler.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop scheduler")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}

	app.logger.Info("Report Dispatcher stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "report-dispatcher",
	Short:   "Scheduled analytics report dispatcher",
	Long:    `A scheduling and delivery service for analytics dashboard reports: renders report artifacts on a cron-driven schedule, emails them to recipients, and fans analytics events out to registered webhooks and Slack channels.`,
	Version: AppVersion,
	RunE:    runDispatcher,
}

// runDispatcher is the main command to run the dispatcher
func runDispatcher(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Report Dispatcher %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Timezone: %s\n", cfg.Scheduler.Timezone)
		fmt.Printf("SMTP host: %s\n", cfg.Email.SMTPHost)

		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Testing Report Dispatcher connectivity...")

		fmt.Printf("Testing storage connection (%s)...\n", cfg.Storage.Type)
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Connect(); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		defer store.Close()
		fmt.Println("✓ Storage connection successful")

		fmt.Printf("Testing artifact directory (%s)...\n", cfg.Reports.ArtifactDir)
		if _, err := report.NewFileArtifactStore(cfg.Reports.ArtifactDir, cfg.Reports.BaseURL); err != nil {
			return fmt.Errorf("failed to open artifact directory: %w", err)
		}
		fmt.Println("✓ Artifact directory writable")

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
