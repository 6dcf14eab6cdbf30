package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/logreport/internal/analyzer"
	"github.com/tinytelemetry/logreport/internal/model"
)

const (
	defaultConfigPath       = "./config.json"
	defaultLogLevel         = "info"
	defaultHistoryRetention = 90 // days, 0 = disabled
	defaultAPIAddr          = "127.0.0.1:3000"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	ReportSize          int           `mapstructure:"report-size" yaml:"report-size"`
	ReportDir           string        `mapstructure:"report-dir" yaml:"report-dir"`
	LogDir              string        `mapstructure:"log-dir" yaml:"log-dir"`
	LogPattern          string        `mapstructure:"log-pattern" yaml:"log-pattern"`
	URLPattern          string        `mapstructure:"url-pattern" yaml:"url-pattern"`
	TimePattern         string        `mapstructure:"time-pattern" yaml:"time-pattern"`
	ErrorThreshold      float64       `mapstructure:"error-threshold" yaml:"error-threshold"`
	TemplatePath        string        `mapstructure:"template-path" yaml:"template-path"`
	TemplatePlaceholder string        `mapstructure:"template-placeholder" yaml:"template-placeholder"`
	LogFile             string        `mapstructure:"log-file" yaml:"log-file"`
	LogLevel            string        `mapstructure:"log-level" yaml:"log-level"`
	MaxLineSize         int           `mapstructure:"max-line-size" yaml:"max-line-size"`
	Progress            bool          `mapstructure:"progress" yaml:"progress"`
	HistoryEnabled      bool          `mapstructure:"history-enabled" yaml:"history-enabled"`
	DBPath              string        `mapstructure:"db-path" yaml:"db-path"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout" yaml:"query-timeout"`
	HistoryRetention    int           `mapstructure:"history-retention" yaml:"history-retention"`
	APIAddr             string        `mapstructure:"api-addr" yaml:"api-addr"`
	RunInterval         time.Duration `mapstructure:"run-interval" yaml:"run-interval"`
	ConfigPath          string        `mapstructure:"-" yaml:"-"` // not from config file
}

// loadConfig merges defaults, the optional config file and LOGREPORT_*
// environment variables. A missing file is only an error when configPath was
// given explicitly.
func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LOGREPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("report-size", model.DefaultReportSize)
	v.SetDefault("report-dir", model.DefaultReportDir)
	v.SetDefault("log-dir", model.DefaultLogDir)
	v.SetDefault("log-pattern", model.DefaultLogPattern)
	v.SetDefault("url-pattern", model.DefaultURLPattern)
	v.SetDefault("time-pattern", model.DefaultTimePattern)
	v.SetDefault("error-threshold", model.DefaultErrorThreshold)
	v.SetDefault("template-path", "")
	v.SetDefault("template-placeholder", model.DefaultPlaceholder)
	v.SetDefault("log-file", "")
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("max-line-size", model.DefaultMaxLineSize)
	v.SetDefault("progress", true)
	v.SetDefault("history-enabled", true)
	v.SetDefault("db-path", filepath.Join("~", ".local", "share", "logreport", "history.duckdb"))
	v.SetDefault("query-timeout", model.DefaultQueryTimeout)
	v.SetDefault("history-retention", defaultHistoryRetention)
	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("run-interval", time.Duration(0))

	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		notFound := errors.As(err, &configFileNotFound) || os.IsNotExist(err)
		if !notFound || explicit {
			return cfg, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.LogFile = expandHome(cfg.LogFile, home)
	cfg.LogDir = expandHome(cfg.LogDir, home)
	cfg.ReportDir = expandHome(cfg.ReportDir, home)
	cfg.TemplatePath = expandHome(cfg.TemplatePath, home)

	return cfg, nil
}

func (cfg appConfig) validate() error {
	if cfg.ReportSize < 0 {
		return fmt.Errorf("invalid report-size: %d", cfg.ReportSize)
	}
	if cfg.ErrorThreshold <= 0 || cfg.ErrorThreshold > 100 {
		return fmt.Errorf("invalid error-threshold: %v (want 0 < x <= 100)", cfg.ErrorThreshold)
	}
	if cfg.MaxLineSize <= 0 {
		return fmt.Errorf("invalid max-line-size: %d", cfg.MaxLineSize)
	}
	if cfg.HistoryRetention < 0 {
		return fmt.Errorf("invalid history-retention: %d", cfg.HistoryRetention)
	}
	if cfg.RunInterval < 0 {
		return fmt.Errorf("invalid run-interval: %s", cfg.RunInterval)
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("invalid query-timeout: %s", cfg.QueryTimeout)
	}
	if strings.TrimSpace(cfg.LogDir) == "" || strings.TrimSpace(cfg.ReportDir) == "" {
		return errors.New("log-dir and report-dir must be set")
	}
	return nil
}

// analyzerConfig maps the CLI configuration onto the pipeline settings.
func (cfg appConfig) analyzerConfig() analyzer.Config {
	return analyzer.Config{
		LogDir:         cfg.LogDir,
		ReportDir:      cfg.ReportDir,
		LogPattern:     cfg.LogPattern,
		URLPattern:     cfg.URLPattern,
		TimePattern:    cfg.TimePattern,
		ReportSize:     cfg.ReportSize,
		ErrorThreshold: cfg.ErrorThreshold,
		TemplatePath:   cfg.TemplatePath,
		Placeholder:    cfg.TemplatePlaceholder,
		MaxLineSize:    cfg.MaxLineSize,
		Progress:       cfg.Progress,
	}
}

// expandHome expands a leading ~/ in path.
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
