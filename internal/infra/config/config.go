package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"agent-swarm/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tools     ToolsConfig     `yaml:"tools"`
	Agents    AgentsConfig    `yaml:"agents"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// ServerConfig holds inbound HTTP server settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	RequestsPerMin int    `yaml:"requests_per_min"`
	Burst          int    `yaml:"burst"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider       ProviderConfig       `yaml:"provider"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the LLM provider.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for the LLM provider.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ProviderConfig holds settings for the OpenAI-compatible chat endpoint.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// EmbeddingConfig holds text embedding provider settings.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key,omitempty"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ToolsConfig holds per-tool external collaborator settings.
type ToolsConfig struct {
	SMTP   SMTPConfig   `yaml:"smtp"`
	Slack  SlackConfig  `yaml:"slack"`
	News   NewsConfig   `yaml:"news"`
	Search SearchConfig `yaml:"search"`
}

// SMTPConfig holds outbound support-email settings.
type SMTPConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Sender       string `yaml:"sender"`
	Password     string `yaml:"password"`
	SupportInbox string `yaml:"support_inbox"`
}

// SlackConfig holds the alert webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// NewsConfig holds news API settings.
type NewsConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// SearchConfig holds web search backend settings.
type SearchConfig struct {
	BaseURL    string        `yaml:"base_url"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	MaxResults int           `yaml:"max_results"`
}

// AgentsConfig holds agent behaviour settings.
type AgentsConfig struct {
	PromptsDir   string            `yaml:"prompts_dir"`
	FAQThreshold float64           `yaml:"faq_threshold"`
	FAQ          []domain.FAQEntry `yaml:"faq,omitempty"`
	Users        []UserSeedConfig  `yaml:"users,omitempty"`
}

// UserSeedConfig is one row of the startup user seed table.
type UserSeedConfig struct {
	UserID        string `yaml:"user_id"`
	Email         string `yaml:"email"`
	UserName      string `yaml:"user_name"`
	PaymentStatus string `yaml:"payment_status"`
	OrderStatus   string `yaml:"order_status"`
}

// KnowledgeConfig holds knowledge base settings.
type KnowledgeConfig struct {
	DBPath    string   `yaml:"db_path"`
	Documents []string `yaml:"documents,omitempty"` // files ingested at startup
	ChunkSize int      `yaml:"chunk_size"`          // words per chunk
	TopK      int      `yaml:"top_k"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stdout", "stderr", or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Defaults returns a Config populated with sensible defaults, including the
// seed FAQ list and user table the support agent ships with.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestsPerMin: 100,
			Burst:          20,
		},
		LLM: LLMConfig{
			Provider: ProviderConfig{
				Name:        "openai",
				BaseURL:     "https://api.openai.com/v1",
				Model:       "gpt-4o",
				Temperature: 0.7,
				MaxTokens:   512,
				ConnTimeout: 30 * time.Second,
				RespTimeout: 120 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Tools: ToolsConfig{
			Slack: SlackConfig{Channel: "#alert"},
			News: NewsConfig{
				BaseURL: "https://newsdata.io/api/1/latest",
			},
			Search: SearchConfig{
				BaseURL:    "https://api.duckduckgo.com/",
				CacheTTL:   15 * time.Minute,
				MaxResults: 3,
			},
		},
		Agents: AgentsConfig{
			PromptsDir:   "prompts",
			FAQThreshold: 0.7,
			FAQ: []domain.FAQEntry{
				{
					Question: "How can I Contact Support?",
					Answer:   "You can contact support by support@example.com",
				},
				{
					Question: "How do I reset my password?",
					Answer:   "You can reset your password by going to the settings page and clicking on 'Reset Password'.",
				},
				{
					Question: "What is policy on refunds?",
					Answer:   "Our refund policy allows you to request a refund within 30 days of purchase if you are not satisfied with the product.",
				},
			},
			Users: []UserSeedConfig{
				{UserID: "client789", Email: "c789@example.com", UserName: "John Doe", PaymentStatus: "Paid", OrderStatus: "Shipped"},
				{UserID: "client790", Email: "c790@example.com", UserName: "Jane Doe", PaymentStatus: "Pending", OrderStatus: "Processing"},
			},
		},
		Knowledge: KnowledgeConfig{
			DBPath:    "data/knowledge.db",
			ChunkSize: 500,
			TopK:      3,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
	}
}

// Load reads the config file at path, applies env overrides, decrypts any
// enc:-prefixed secrets, and validates. A missing file is not an error: the
// defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", domain.ErrConfigLoad, err)
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("AGENTSWARM_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps AGENTSWARM_* env vars onto config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTSWARM_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("AGENTSWARM_LLM_BASE_URL"); v != "" {
		cfg.LLM.Provider.BaseURL = v
	}
	if v := os.Getenv("AGENTSWARM_LLM_API_KEY"); v != "" {
		cfg.LLM.Provider.APIKey = v
	}
	if v := os.Getenv("AGENTSWARM_LLM_MODEL"); v != "" {
		cfg.LLM.Provider.Model = v
	}
	if v := os.Getenv("AGENTSWARM_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("AGENTSWARM_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("AGENTSWARM_SMTP_HOST"); v != "" {
		cfg.Tools.SMTP.Host = v
	}
	if v := os.Getenv("AGENTSWARM_SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tools.SMTP.Port = n
		}
	}
	if v := os.Getenv("AGENTSWARM_SMTP_SENDER"); v != "" {
		cfg.Tools.SMTP.Sender = v
	}
	if v := os.Getenv("AGENTSWARM_SMTP_PASSWORD"); v != "" {
		cfg.Tools.SMTP.Password = v
	}
	if v := os.Getenv("AGENTSWARM_SUPPORT_INBOX"); v != "" {
		cfg.Tools.SMTP.SupportInbox = v
	}
	if v := os.Getenv("AGENTSWARM_SLACK_WEBHOOK_URL"); v != "" {
		cfg.Tools.Slack.WebhookURL = v
	}
	if v := os.Getenv("AGENTSWARM_NEWS_API_KEY"); v != "" {
		cfg.Tools.News.APIKey = v
	}
	if v := os.Getenv("AGENTSWARM_PROMPTS_DIR"); v != "" {
		cfg.Agents.PromptsDir = v
	}
	if v := os.Getenv("AGENTSWARM_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("AGENTSWARM_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("AGENTSWARM_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// Validate checks cross-field constraints that would otherwise surface as
// confusing runtime failures.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", domain.ErrConfigLoad)
	}
	if cfg.LLM.Provider.BaseURL == "" {
		return fmt.Errorf("%w: llm.provider.base_url is required", domain.ErrConfigLoad)
	}
	if cfg.Agents.FAQThreshold < 0 || cfg.Agents.FAQThreshold > 1 {
		return fmt.Errorf("%w: agents.faq_threshold must be in [0,1]", domain.ErrConfigLoad)
	}
	if cfg.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("%w: knowledge.chunk_size must be > 0", domain.ErrConfigLoad)
	}
	if cfg.Knowledge.TopK <= 0 {
		return fmt.Errorf("%w: knowledge.top_k must be > 0", domain.ErrConfigLoad)
	}
	return nil
}

// decryptSecrets replaces enc:-prefixed values with their decrypted form.
func decryptSecrets(cfg *Config, passphrase string) error {
	secrets := map[string]*string{
		"llm api_key":       &cfg.LLM.Provider.APIKey,
		"embedding api_key": &cfg.Embedding.APIKey,
		"smtp password":     &cfg.Tools.SMTP.Password,
		"slack webhook_url": &cfg.Tools.Slack.WebhookURL,
		"news api_key":      &cfg.Tools.News.APIKey,
	}
	for name, fp := range secrets {
		if strings.HasPrefix(*fp, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*fp = decrypted
		}
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %v", domain.ErrDecryption, err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: create cipher: %v", domain.ErrDecryption, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: create gcm: %v", domain.ErrDecryption, err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}

	return string(plaintext), nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}
