package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig               `mapstructure:"http"`
	Log       LogConfig                `mapstructure:"log"`
	MySQL     DatabaseConfig           `mapstructure:"mysql"`
	Redis     RedisConfig              `mapstructure:"redis"`
	Kafka     KafkaConfig              `mapstructure:"kafka"`
	Worker    WorkerConfig             `mapstructure:"worker"`
	Relay     RelayConfig              `mapstructure:"relay"`
	RateLimit RateLimitConfig          `mapstructure:"rate_limit"`
	Contact   ContactConfig            `mapstructure:"contact"`
	Message   MessagePolicyConfig      `mapstructure:"message"`
	Channels  map[string]ChannelConfig `mapstructure:"channels"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type WorkerConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"`
}

type RelayConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

// ContactConfig points at the contact-settings service used to resolve the
// effective channel of generic messages.
type ContactConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// MessagePolicyConfig holds the fallback defaults applied when a generic
// message is retargeted to a concrete channel.
type MessagePolicyConfig struct {
	DefaultSenderName    string `mapstructure:"default_sender_name"`
	DefaultSenderAddress string `mapstructure:"default_sender_address"`
	DefaultCountryPrefix string `mapstructure:"default_country_prefix"`
	SMSSenderName        string `mapstructure:"sms_sender_name"`
}

type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"  yaml:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"     yaml:"max_delay"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

// ChannelConfig configures one channel adapter plus its retry policy.
// Keyed in the config file by lowercased channel name ("sms", "email", ...).
type ChannelConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Path      string        `mapstructure:"path"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
	Retry     RetryConfig   `mapstructure:"retry"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (MSGGW_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (MSGGW_*)
	v.SetEnvPrefix("MSGGW")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
