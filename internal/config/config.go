package config

import (
	"fmt"
	"math"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost/strategies"
)

// Config represents the application configuration
type Config struct {
	Reporting  ReportingConfig  `yaml:"reporting"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Engine     EngineConfig     `yaml:"engine"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Databricks DatabricksConfig `yaml:"databricks"`
	Notify     NotifyConfig     `yaml:"notify"`
	API        APIConfig        `yaml:"api"`
	Proactive  ProactiveConfig  `yaml:"proactive"`
}

// ProactiveConfig drives the recurring background analysis cycle
type ProactiveConfig struct {
	IntervalHours int `yaml:"intervalHours"`
}

// ReportingConfig holds output normalization settings
type ReportingConfig struct {
	// Currency is the single reporting currency all amounts are
	// converted to.
	Currency string `yaml:"currency"`
	// ConversionRates maps source currency to its rate into Currency.
	ConversionRates map[string]float64 `yaml:"conversionRates"`
}

// StrategiesConfig selects and tunes the optimization strategies
type StrategiesConfig struct {
	Enabled     []string                     `yaml:"enabled"`
	Rightsizing strategies.RightsizingConfig `yaml:"rightsizing"`
	Idle        strategies.IdleConfig        `yaml:"idle-resources"`
	Commitment  strategies.CommitmentConfig  `yaml:"commitment"`
}

// EngineConfig bounds a single analysis run
type EngineConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
	MaxConcurrency int `yaml:"maxConcurrency"`
}

// ProvidersConfig holds per-cloud adapter settings
type ProvidersConfig struct {
	AWS   AWSConfig   `yaml:"aws"`
	Azure AzureConfig `yaml:"azure"`
	GCP   GCPConfig   `yaml:"gcp"`
}

// AWSConfig holds AWS adapter settings
type AWSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// AzureConfig holds Azure adapter settings
type AzureConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SubscriptionID string `yaml:"subscriptionId"`
	ResourceGroup  string `yaml:"resourceGroup"`
}

// GCPConfig holds GCP adapter settings
type GCPConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ProjectID      string `yaml:"projectId"`
	BillingAccount string `yaml:"billingAccount"`
}

// DatabricksConfig holds Databricks job-history settings
type DatabricksConfig struct {
	Enabled      bool   `yaml:"enabled"`
	WorkspaceURL string `yaml:"workspaceUrl"`
	Token        string `yaml:"token"`
	// CloudProvider attributes job history to the cloud the workspace
	// runs on (aws, azure or gcp).
	CloudProvider string `yaml:"cloudProvider"`
}

// NotifyConfig holds notification channel settings
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slackWebhookUrl"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port           int     `yaml:"port"`
	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
	Authentication struct {
		Enabled bool   `yaml:"enabled"`
		JWTKey  string `yaml:"jwtKey"`
	} `yaml:"authentication"`
}

// setDefaults initializes configuration with default values
func setDefaults(config *Config) {
	config.Reporting.Currency = "USD"
	config.Strategies.Enabled = []string{"rightsizing", "idle-resources", "commitment"}
	config.Engine.TimeoutSeconds = 120
	config.API.Port = 8080
	config.API.RateLimitRPS = 10
	config.API.RateLimitBurst = 20
	config.Databricks.CloudProvider = "aws"
	config.Proactive.IntervalHours = 24
}

// Load reads configuration from file and applies defaults
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	setDefaults(config)

	// Load from file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func validate(config *Config) error {
	if config.Reporting.Currency == "" {
		return fmt.Errorf("reporting currency must be set")
	}
	for currency, rate := range config.Reporting.ConversionRates {
		if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return fmt.Errorf("conversion rate for %s must be a positive finite number", currency)
		}
	}
	if len(config.Strategies.Enabled) == 0 {
		return fmt.Errorf("at least one strategy must be enabled")
	}
	if config.Engine.TimeoutSeconds < 0 {
		return fmt.Errorf("engine timeout must not be negative")
	}
	if config.API.Port <= 0 {
		return fmt.Errorf("API port must be positive")
	}
	switch config.Databricks.CloudProvider {
	case "aws", "azure", "gcp":
	default:
		return fmt.Errorf("databricks cloudProvider must be aws, azure or gcp")
	}
	if config.Proactive.IntervalHours <= 0 {
		return fmt.Errorf("proactive interval must be positive")
	}
	return nil
}

// Sample returns a starter configuration for `config init`.
func Sample() string {
	return `reporting:
  currency: USD
  conversionRates:
    EUR: 1.08
    GBP: 1.27

strategies:
  enabled:
    - rightsizing
    - idle-resources
    - commitment
  rightsizing:
    utilizationThreshold: 0.2
    minSamplePeriods: 2
  idle-resources:
    minSamplePeriods: 2
  commitment:
    maxVariation: 0.15
    minSamplePeriods: 3
    committedDiscount: 0.3

engine:
  timeoutSeconds: 120
  maxConcurrency: 8

providers:
  aws:
    enabled: true
    region: us-east-1
    profile: default
  azure:
    enabled: false
    subscriptionId: your-subscription-id
  gcp:
    enabled: false
    projectId: your-project-id
    billingAccount: your-billing-account

databricks:
  enabled: false
  workspaceUrl: https://your-workspace.cloud.databricks.com
  token: your-token
  cloudProvider: aws

notify:
  slackWebhookUrl: ""

proactive:
  intervalHours: 24

api:
  port: 8080
  rateLimitRps: 10
  rateLimitBurst: 20
  authentication:
    enabled: false
    jwtKey: ""
`
}
