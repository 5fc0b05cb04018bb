package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/estimate"
	"github.com/spigell/resume-scorer/internal/scoring"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-scorer"
	envPrefix = "RESUME_SCORER"
)

type Config struct {
	APIURL         string          `mapstructure:"api-url"`
	APIKey         string          `mapstructure:"api-key"`
	APIKeyFile     string          `mapstructure:"api-key-file"`
	UserAgent      string          `mapstructure:"user-agent"`
	Timeout        time.Duration   `mapstructure:"timeout"`
	MaxUploadBytes int64           `mapstructure:"max-upload-bytes"`
	MaxLogLength   int             `mapstructure:"max-log-length"`
	Estimate       *EstimateConfig `mapstructure:"estimate"`
}

type EstimateConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-scorer scores a resume against a job description and shows the evidence behind every answer",
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

	// the scoring service reads its own key from APP_API_KEY; accept it too
	if err := viper.BindEnv("api-key", envPrefix+"_API_KEY", "APP_API_KEY"); err != nil {
		log.Fatalf("binding api key environment variables: %v", err)
	}

	viper.SetDefault("api-url", scoring.DefaultAPIURL)
	viper.SetDefault("api-key-file", "")
	viper.SetDefault("user-agent", "")
	viper.SetDefault("timeout", scoring.DefaultTimeout)
	viper.SetDefault("max-upload-bytes", document.DefaultMaxUploadBytes)
	viper.SetDefault("max-log-length", 200)
	viper.SetDefault("estimate.debounce", estimate.DefaultDebounce)
	viper.SetDefault("estimate.timeout", estimate.DefaultTimeout)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", scoring.DefaultAPIURL, "base url of the scoring service")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Estimate == nil {
		config.Estimate = &EstimateConfig{}
	}

	return config, nil
}
