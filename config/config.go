package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// TCP modes for tcp-tls connections.
const (
	// TCPModeTLS dials ssl://host:port directly.
	TCPModeTLS = "tls"
	// TCPModeWebSocketOnly dials wss:// for every connection, as a browser host must.
	TCPModeWebSocketOnly = "websocket-only"
)

type Config struct {
	// Storage
	StorageDriver string
	StorageDir    string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// MQTT
	MQTTTCPMode           string
	MQTTProtocolVersion   int
	MQTTTLSInsecure       bool
	MQTTReconnectInterval time.Duration
	MQTTKeepAlive         time.Duration
	MQTTConnectTimeout    time.Duration
	MQTTOperationTimeout  time.Duration

	// HTTP
	HTTPAddr     string
	AuthUsername string
	AuthPassword string

	// Application
	LogLevel           string
	NotificationBuffer int
	Timeout            time.Duration
}

var defaults = map[string]interface{}{
	"STORAGE_DRIVER": StorageFile,
	"STORAGE_DIR":    "./data",

	"DB_HOST":     "localhost",
	"DB_PORT":     "5432",
	"DB_USER":     "postgres",
	"DB_PASSWORD": "password",
	"DB_NAME":     "mqtt_panel",
	"DB_SSLMODE":  "disable",

	"REDIS_HOST":       "localhost",
	"REDIS_PORT":       "6379",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"REDIS_KEY_PREFIX": "mqtt-panel:",

	"MQTT_TCP_MODE":                  TCPModeTLS,
	"MQTT_PROTOCOL_VERSION":          4,
	"MQTT_TLS_INSECURE":              false,
	"MQTT_RECONNECT_SECONDS":         5,
	"MQTT_KEEPALIVE_SECONDS":         60,
	"MQTT_CONNECT_TIMEOUT_SECONDS":   30,
	"MQTT_OPERATION_TIMEOUT_SECONDS": 10,

	"HTTP_ADDR":     ":8080",
	"AUTH_USERNAME": "admin",
	"AUTH_PASSWORD": "xadminx",

	"LOG_LEVEL":           "info",
	"NOTIFICATION_BUFFER": 200,
	"TIMEOUT_SECONDS":     30,
}

// Load reads .env (if present), the optional config file and the environment, in
// increasing order of precedence.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		StorageDir:    v.GetString("STORAGE_DIR"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		RedisHost:      v.GetString("REDIS_HOST"),
		RedisPort:      v.GetString("REDIS_PORT"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		RedisKeyPrefix: v.GetString("REDIS_KEY_PREFIX"),

		MQTTTCPMode:           strings.ToLower(v.GetString("MQTT_TCP_MODE")),
		MQTTProtocolVersion:   v.GetInt("MQTT_PROTOCOL_VERSION"),
		MQTTTLSInsecure:       v.GetBool("MQTT_TLS_INSECURE"),
		MQTTReconnectInterval: seconds(v, "MQTT_RECONNECT_SECONDS"),
		MQTTKeepAlive:         seconds(v, "MQTT_KEEPALIVE_SECONDS"),
		MQTTConnectTimeout:    seconds(v, "MQTT_CONNECT_TIMEOUT_SECONDS"),
		MQTTOperationTimeout:  seconds(v, "MQTT_OPERATION_TIMEOUT_SECONDS"),

		HTTPAddr:     v.GetString("HTTP_ADDR"),
		AuthUsername: v.GetString("AUTH_USERNAME"),
		AuthPassword: v.GetString("AUTH_PASSWORD"),

		LogLevel:           v.GetString("LOG_LEVEL"),
		NotificationBuffer: v.GetInt("NOTIFICATION_BUFFER"),
		Timeout:            seconds(v, "TIMEOUT_SECONDS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StorageFile, StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.MQTTTCPMode {
	case TCPModeTLS, TCPModeWebSocketOnly:
	default:
		return fmt.Errorf("unknown MQTT_TCP_MODE %q", c.MQTTTCPMode)
	}
	switch c.MQTTProtocolVersion {
	case 3, 4, 5:
	default:
		return fmt.Errorf("unsupported MQTT_PROTOCOL_VERSION %d", c.MQTTProtocolVersion)
	}
	if c.MQTTReconnectInterval <= 0 || c.MQTTConnectTimeout <= 0 || c.MQTTOperationTimeout <= 0 {
		return errors.New("MQTT timeouts must be positive")
	}
	return nil
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}
