package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the docforge engine.
// Values come from config.yaml with environment variable overrides; secrets
// (database password, AI and SMTP credentials) are env-only (yaml:"-").
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	Database  DatabaseConfig  `yaml:"database"`
	AI        AIConfig        `yaml:"ai"`
	Mail      MailConfig      `yaml:"mail"`
	Documents DocumentsConfig `yaml:"documents"`
	Autofill  AutofillConfig  `yaml:"autofill"`
}

// DatabaseConfig holds PostgreSQL configuration for the advisory record store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"docforge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"docforge"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// AIConfig holds the chat-completion collaborator endpoint.
type AIConfig struct {
	Endpoint       string        `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model          string        `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey         string        `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AI_REQUEST_TIMEOUT" env-default:"30s"`
}

// MailConfig holds outbound SMTP delivery settings.
// Delivery is disabled entirely when Enabled is false.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MAIL_ENABLED" env-default:"false"`
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:""`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:""`
	Username string `yaml:"username" env:"SMTP_USERNAME" env-default:""`
	Password string `yaml:"-" env:"SMTP_PASSWORD"` // Secret - not in YAML
}

// DocumentsConfig holds the filesystem namespaces for templates and output.
type DocumentsConfig struct {
	TemplatesDir string `yaml:"templates_dir" env:"TEMPLATES_DIR" env-default:"templates/documents"`
	GeneratedDir string `yaml:"generated_dir" env:"GENERATED_DIR" env-default:"generated_documents"`
}

// AutofillConfig holds the tunables of the slot-filling pipeline.
type AutofillConfig struct {
	// CompletenessThreshold is the score (0-100) at which a field map
	// becomes generation-eligible without further questions.
	CompletenessThreshold int `yaml:"completeness_threshold" env:"AUTOFILL_COMPLETENESS_THRESHOLD" env-default:"50"`
	// QuestionBatchSize caps how many follow-up questions one round emits.
	QuestionBatchSize int `yaml:"question_batch_size" env:"AUTOFILL_QUESTION_BATCH_SIZE" env-default:"5"`
	// IdleTimeout is how long a session may sit without a transition
	// before the sweeper cancels it.
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"AUTOFILL_IDLE_TIMEOUT" env-default:"30m"`
	// SweepInterval is how often expired sessions are reclaimed.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"AUTOFILL_SWEEP_INTERVAL" env-default:"5m"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Autofill.CompletenessThreshold < 0 || c.Autofill.CompletenessThreshold > 100 {
		return fmt.Errorf("completeness_threshold must be within [0, 100], got %d", c.Autofill.CompletenessThreshold)
	}
	if c.Autofill.QuestionBatchSize < 1 {
		return fmt.Errorf("question_batch_size must be positive, got %d", c.Autofill.QuestionBatchSize)
	}
	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("mail is enabled but smtp host is empty")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
