package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	pkgconfig "github.com/weiawesome/wes-io-chat/pkg/config"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Join modes for a connection that announces a second identity.
const (
	JoinModeReplace = "replace"
	JoinModeAdd     = "add"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Relay     RelayConfig
	ID        IDConfig
	Database  DatabaseConfig
	Messages  MessagesConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Kafka     KafkaConfig
	Cassandra CassandraConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	StaticClient   bool     `mapstructure:"static_client"`
	Metrics        bool
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RelayConfig struct {
	JoinMode            string `mapstructure:"join_mode"`
	RequireJoinedSender bool   `mapstructure:"require_joined_sender"`
}

type IDConfig struct {
	Strategy    string // snowflake, ulid, uuid, ksuid, nanoid, cuid2
	MachineID   int64  `mapstructure:"machine_id"`
	Epoch       int64  // unix ms, snowflake only
	NanoIDSize  int    `mapstructure:"nanoid_size"`
	CUID2Length int    `mapstructure:"cuid2_length"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// MessagesConfig selects where the relay writes its message log.
type MessagesConfig struct {
	Driver string // gorm, cassandra
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Prefix string
	TTL    time.Duration
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type CassandraConfig struct {
	Hosts          []string
	Keyspace       string
	Username       string
	Password       string
	Consistency    string
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration
	NumConns       int `mapstructure:"num_conns"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func Load() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

// Watch loads the configuration like Load and then follows the config file:
// each edit that still validates is passed to onChange, invalid edits are
// logged and skipped.
func Watch(onChange func(*Config)) (*Config, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, err
	}

	pkgconfig.Watch(v, func(e fsnotify.Event) {
		l := log.L()
		next, err := decode(v)
		if err != nil {
			l.Warn().Err(err).Str("file", e.Name).Msg("ignoring invalid config change")
			return
		}
		l.Info().Str("file", e.Name).Msg("config reloaded")
		onChange(next)
	})
	return cfg, nil
}

func load() (*Config, *viper.Viper, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, nil, err
	}
	setDefaults(v)

	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                 "PORT",
		"database.driver":             "DB_DRIVER",
		"database.host":               "DB_HOST",
		"database.port":               "DB_PORT",
		"database.user":               "DB_USER",
		"database.password":           "DB_PASSWORD",
		"database.dbname":             "DB_NAME",
		"database.sslmode":            "DB_SSLMODE",
		"database.file_path":          "DB_FILE_PATH",
		"messages.driver":             "MESSAGES_DRIVER",
		"relay.join_mode":             "RELAY_JOIN_MODE",
		"relay.require_joined_sender": "RELAY_REQUIRE_JOINED_SENDER",
		"id.strategy":                 "ID_STRATEGY",
		"id.machine_id":               "ID_MACHINE_ID",
		"redis.enabled":               "REDIS_ENABLED",
		"redis.address":               "REDIS_ADDRESS",
		"redis.password":              "REDIS_PASSWORD",
		"kafka.enabled":               "KAFKA_ENABLED",
		"kafka.brokers":               "KAFKA_BROKERS",
		"kafka.topic":                 "KAFKA_TOPIC",
		"log.level":                   "LOG_LEVEL",
	}); err != nil {
		return nil, nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 30*time.Second)
	cfg.Cassandra.ConnectTimeout = parseDuration(v, "cassandra.connect_timeout", 5*time.Second)
	cfg.Cassandra.Timeout = parseDuration(v, "cassandra.timeout", 2*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Relay.JoinMode {
	case JoinModeReplace, JoinModeAdd:
	default:
		return fmt.Errorf("relay.join_mode must be %q or %q, got %q", JoinModeReplace, JoinModeAdd, c.Relay.JoinMode)
	}
	switch c.Messages.Driver {
	case "gorm", "cassandra":
	default:
		return fmt.Errorf("messages.driver must be gorm or cassandra, got %q", c.Messages.Driver)
	}
	switch c.ID.Strategy {
	case "snowflake", "ulid", "uuid", "ksuid", "nanoid", "cuid2":
	default:
		return fmt.Errorf("id.strategy %q is not supported", c.ID.Strategy)
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket.ping_interval (%s) must be shorter than websocket.pong_wait (%s)",
			c.WebSocket.PingInterval, c.WebSocket.PongWait)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.static_client", true)
	v.SetDefault("server.metrics", true)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("relay.join_mode", JoinModeReplace)
	v.SetDefault("relay.require_joined_sender", false)
	v.SetDefault("id.strategy", "snowflake")
	v.SetDefault("id.machine_id", 1)
	v.SetDefault("id.epoch", 1704067200000) // 2024-01-01T00:00:00Z
	v.SetDefault("id.nanoid_size", 21)
	v.SetDefault("id.cuid2_length", 24)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wes_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("messages.driver", "gorm")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.prefix", "chat:directory")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "chat-messages")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("cassandra.hosts", []string{"localhost:9042"})
	v.SetDefault("cassandra.keyspace", "wes_chat")
	v.SetDefault("cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("cassandra.connect_timeout", "5s")
	v.SetDefault("cassandra.timeout", "2s")
	v.SetDefault("cassandra.num_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
