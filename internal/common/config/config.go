package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Engine        EngineConfig       `mapstructure:"engine"`
	Declaration   DeclarationConfig  `mapstructure:"declaration"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EngineConfig holds the lifecycle engine business constants. These replace
// process-wide settings lookups: the engine receives them at construction.
type EngineConfig struct {
	// BufferHours expands job windows on both ends when checking whether two
	// of a worker's applications conflict. Travel time between real-world
	// jobs is assumed non-zero.
	BufferHours int `mapstructure:"buffer_hours"`
	// MaxTxRetries bounds internal retries on serialization failures.
	MaxTxRetries int `mapstructure:"max_tx_retries"`
}

// DeclarationConfig holds settings for the social-secretariat integration.
type DeclarationConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	AuthURL           string `mapstructure:"auth_url"`
	ClientID          string `mapstructure:"client_id"`
	ClientSecret      string `mapstructure:"client_secret"`
	EmployerReference string `mapstructure:"employer_reference"`
	PollAttempts      int    `mapstructure:"poll_attempts"`
	PollInterval      int    `mapstructure:"poll_interval"`    // seconds
	RequestTimeout    int    `mapstructure:"request_timeout"`  // milliseconds
	SubmitRetries     int    `mapstructure:"submit_retries"`   // token fetch + create attempts
	RetryDelay        int    `mapstructure:"retry_delay"`      // milliseconds between submit retries
}

// NotificationConfig holds settings for worker/customer/operator delivery.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Push struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
		SenderID string `mapstructure:"default_sms_sender_id"`
	} `mapstructure:"push"`
	AdminEmails       []string `mapstructure:"admin_emails"`
	AlertDedupMinutes int      `mapstructure:"alert_dedup_minutes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
