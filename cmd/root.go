package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hiresense/internal/agents"
	"github.com/spigell/hiresense/internal/dashboard"
	"github.com/spigell/hiresense/internal/memory"
	"github.com/spigell/hiresense/internal/notify"
)

const (
	app       = "hiresense"
	envPrefix = "HIRESENSE"
)

type Config struct {
	JobsFile  string           `mapstructure:"jobs-file"`
	Pipeline  agents.Config    `mapstructure:"pipeline"`
	AI        *AIConfig        `mapstructure:"ai"`
	Memory    memory.Config    `mapstructure:"memory"`
	Notify    notify.Config    `mapstructure:"notify"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
	Dashboard dashboard.Config `mapstructure:"dashboard"`
}

type AIConfig struct {
	// Provider is "gemini" or "local".
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Cache    CacheConfig   `mapstructure:"cache"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type CacheConfig struct {
	// RedisURL switches the embedding cache from process memory to redis.
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	CollectorURL string `mapstructure:"collector-url"`
	ServiceName  string `mapstructure:"service-name"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hiresense ranks candidate CVs against a job description with a chain of AI agents",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hiresense.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("provider", "", "ai provider: gemini or local")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("ai.provider", rootCmd.PersistentFlags().Lookup("provider"))
}

func setDefaults() {
	viper.SetDefault("jobs-file", "")

	viper.SetDefault("pipeline.grade-threshold", agents.DefaultGradeThreshold)
	viper.SetDefault("pipeline.strong-match-threshold", agents.DefaultStrongMatchThreshold)
	viper.SetDefault("pipeline.selection-threshold", memory.DefaultThreshold)
	viper.SetDefault("pipeline.preview-length", agents.DefaultPreviewLength)
	viper.SetDefault("pipeline.concurrency", agents.DefaultConcurrency)
	viper.SetDefault("pipeline.cv-folder", "")
	viper.SetDefault("pipeline.output-dir", ".")
	viper.SetDefault("pipeline.notes-file", "")
	viper.SetDefault("pipeline.bias-lexicon", []string{})
	viper.SetDefault("pipeline.disabled", []string{})

	viper.SetDefault("ai.provider", providerGemini)
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.embedding-model", "text-embedding-004")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.cache.redis-url", "")
	viper.SetDefault("ai.cache.ttl", "24h")

	viper.SetDefault("memory.driver", memory.DriverSQLite)
	viper.SetDefault("memory.dsn", memory.DefaultDSN)

	viper.SetDefault("notify.url", "")
	viper.SetDefault("notify.subject", notify.DefaultSubject)
	viper.SetDefault("notify.conn-timeout", "5s")
	viper.SetDefault("notify.token", "")
	viper.SetDefault("notify.token-file", "")

	viper.SetDefault("telemetry.collector-url", "")
	viper.SetDefault("telemetry.service-name", app)

	viper.SetDefault("dashboard.addr", dashboard.DefaultAddr)
	viper.SetDefault("dashboard.max-upload-bytes", 32<<20)
	viper.SetDefault("dashboard.keep-results", 100)
}

func initConfig() {
	// .env is a convenience for local runs
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	// Without a config file every key falls back to defaults, flags and env.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
