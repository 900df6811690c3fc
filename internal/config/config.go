package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	JWT           JWTConfig           `yaml:"jwt"`
	Payments      PaymentsConfig      `yaml:"payments"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Jobs          JobsConfig          `yaml:"jobs"`
}

// ServerConfig contains HTTP API and gRPC health server settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains the shared secret of the identity provider's access tokens
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// PaymentsConfig contains payment processor and fee policy settings
type PaymentsConfig struct {
	Provider         string `yaml:"provider"` // "stripe" or "mock"
	SecretKey        string `yaml:"secret_key"`
	WebhookSecret    string `yaml:"webhook_secret"`
	Currency         string `yaml:"currency"`
	RenterFeeBps     int64  `yaml:"renter_fee_bps"`
	OwnerFeeBps      int64  `yaml:"owner_fee_bps"`
	WebhookTolerance int    `yaml:"webhook_tolerance_seconds"`
	// MockAutoSucceed makes mock holds succeed as soon as they are created
	MockAutoSucceed bool `yaml:"mock_auto_succeed"`
}

// NotificationsConfig contains email and push delivery settings
type NotificationsConfig struct {
	SendGridAPIKey          string `yaml:"sendgrid_api_key"`
	FromEmail               string `yaml:"from_email"`
	FromName                string `yaml:"from_name"`
	FirebaseCredentialsFile string `yaml:"firebase_credentials_file"`
	// Email and push are sent by background workers, outside the request that caused them
	DeliveryWorkers     int `yaml:"delivery_workers"`
	DeliveryQueueSize   int `yaml:"delivery_queue_size"`
	DeliveryMaxRetries  int `yaml:"delivery_max_retries"`
	DeliveryTimeoutSecs int `yaml:"delivery_timeout_seconds"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpirePendingRequests string `yaml:"expire_pending_requests"`
	CancelAbandonedHolds  string `yaml:"cancel_abandoned_holds"`
	RetryPendingPayouts   string `yaml:"retry_pending_payouts"`
}

// JobsConfig contains thresholds used by the scheduled jobs
type JobsConfig struct {
	PendingRequestTTLHours  int   `yaml:"pending_request_ttl_hours"`
	AbandonedHoldTTLHours   int   `yaml:"abandoned_hold_ttl_hours"`
	PayoutRetryDelayMinutes int   `yaml:"payout_retry_delay_minutes"`
	BatchSize               int32 `yaml:"batch_size"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Payments
	if val := os.Getenv("PAYMENTS_PROVIDER"); val != "" {
		c.Payments.Provider = val
	}
	if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
		c.Payments.SecretKey = val
	}
	if val := os.Getenv("STRIPE_WEBHOOK_SECRET"); val != "" {
		c.Payments.WebhookSecret = val
	}
	if val := os.Getenv("PAYMENTS_MOCK_AUTO_SUCCEED"); val != "" {
		c.Payments.MockAutoSucceed = val == "true" || val == "1"
	}

	// Notifications
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notifications.SendGridAPIKey = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Notifications.FirebaseCredentialsFile = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Payments validation
	if c.Payments.Provider == "" {
		c.Payments.Provider = "mock"
	}
	switch c.Payments.Provider {
	case "stripe":
		if c.Payments.SecretKey == "" {
			return fmt.Errorf("stripe secret key is required")
		}
	case "mock":
	default:
		return fmt.Errorf("unsupported payments provider: %s", c.Payments.Provider)
	}
	if c.Payments.WebhookSecret == "" {
		return fmt.Errorf("payments webhook secret is required")
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "usd"
	}
	c.Payments.Currency = strings.ToLower(c.Payments.Currency)

	// Fee defaults: 10% platform fee split 5%/5%
	if c.Payments.RenterFeeBps == 0 && c.Payments.OwnerFeeBps == 0 {
		c.Payments.RenterFeeBps = 500
		c.Payments.OwnerFeeBps = 500
	}
	if c.Payments.RenterFeeBps < 0 || c.Payments.OwnerFeeBps < 0 || c.Payments.RenterFeeBps+c.Payments.OwnerFeeBps >= 10000 {
		return fmt.Errorf("invalid fee policy: renter %d bps, owner %d bps", c.Payments.RenterFeeBps, c.Payments.OwnerFeeBps)
	}
	if c.Payments.WebhookTolerance == 0 {
		c.Payments.WebhookTolerance = 300
	}

	// Notification delivery defaults
	if c.Notifications.DeliveryWorkers == 0 {
		c.Notifications.DeliveryWorkers = 3
	}
	if c.Notifications.DeliveryQueueSize == 0 {
		c.Notifications.DeliveryQueueSize = 100
	}
	if c.Notifications.DeliveryMaxRetries == 0 {
		c.Notifications.DeliveryMaxRetries = 3
	}
	if c.Notifications.DeliveryTimeoutSecs == 0 {
		c.Notifications.DeliveryTimeoutSecs = 10
	}
	if c.Notifications.DeliveryWorkers < 0 || c.Notifications.DeliveryQueueSize < 0 ||
		c.Notifications.DeliveryMaxRetries < 0 || c.Notifications.DeliveryTimeoutSecs < 0 {
		return fmt.Errorf("invalid notification delivery settings")
	}

	// Scheduler defaults
	if c.Scheduler.ExpirePendingRequests == "" {
		c.Scheduler.ExpirePendingRequests = "0 0 * * * *" // hourly
	}
	if c.Scheduler.CancelAbandonedHolds == "" {
		c.Scheduler.CancelAbandonedHolds = "0 15 * * * *" // hourly at :15
	}
	if c.Scheduler.RetryPendingPayouts == "" {
		c.Scheduler.RetryPendingPayouts = "0 */10 * * * *" // every 10 minutes
	}

	// Job defaults
	if c.Jobs.PendingRequestTTLHours == 0 {
		c.Jobs.PendingRequestTTLHours = 72
	}
	if c.Jobs.AbandonedHoldTTLHours == 0 {
		c.Jobs.AbandonedHoldTTLHours = 48
	}
	if c.Jobs.PayoutRetryDelayMinutes == 0 {
		c.Jobs.PayoutRetryDelayMinutes = 15
	}
	if c.Jobs.BatchSize == 0 {
		c.Jobs.BatchSize = 100
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
