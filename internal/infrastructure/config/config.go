package config

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Matter hub.
// All configuration is loaded from YAML (or JSON with comments) and can be
// overridden by environment variables and command-line flags.
type Config struct {
	Bridge        BridgeConfig        `yaml:"bridge"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BridgeConfig describes the Matter bridge itself.
type BridgeConfig struct {
	// ID identifies this bridge instance in MQTT topics and the API.
	// A random UUID is generated when empty.
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// StorageLocation is the data directory. The database defaults to a
	// file inside it.
	StorageLocation string `yaml:"storage_location"`

	Filter           FilterConfig           `yaml:"filter"`
	BasicInformation BasicInformationConfig `yaml:"basic_information"`

	// ReportQueueSize bounds the outbound attribute report queue.
	ReportQueueSize int `yaml:"report_queue_size"`
}

// FilterConfig selects which Home Assistant entities are bridged.
// Patterns use path.Match syntax against the full entity ID
// (e.g. "light.*", "sensor.*_temperature").
type FilterConfig struct {
	IncludeDomains  []string `yaml:"include_domains"`
	ExcludeDomains  []string `yaml:"exclude_domains"`
	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// BasicInformationConfig is the identity every bridged device reports.
type BasicInformationConfig struct {
	VendorID              int    `yaml:"vendor_id"`
	VendorName            string `yaml:"vendor_name"`
	ProductName           string `yaml:"product_name"`
	ProductLabel          string `yaml:"product_label"`
	HardwareVersion       int64  `yaml:"hardware_version"`
	HardwareVersionString string `yaml:"hardware_version_string"`
	SoftwareVersion       int64  `yaml:"software_version"`
	SoftwareVersionString string `yaml:"software_version_string"`
}

// HomeAssistantConfig contains Home Assistant connection settings.
type HomeAssistantConfig struct {
	URL          string            `yaml:"url"`
	AccessToken  string            `yaml:"access_token"`
	Reconnect    HAReconnectConfig `yaml:"reconnect"`
	PingInterval int               `yaml:"ping_interval"`
}

// HAReconnectConfig contains reconnection backoff settings in seconds.
type HAReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetention is how many days of attribute history to keep.
	// Zero keeps everything.
	HistoryRetention int `yaml:"history_retention"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Override modifies a loaded configuration. Overrides run after the file
// and environment, so command-line flags win.
type Override func(*Config)

// Load reads configuration from a file and applies overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. File values (override defaults); skipped when path is empty
//  3. Environment variables (override file values)
//  4. Overrides, normally from command-line flags
//
// Files ending in .json or .jsonc may contain comments and trailing
// commas. Anything else is parsed as YAML.
//
// Environment variables follow the pattern: MATTERHUB_SECTION_KEY
// For example: MATTERHUB_HOME_ASSISTANT_URL, MATTERHUB_API_PORT
//
// Parameters:
//   - path: Path to the configuration file, or "" for defaults only
//   - overrides: Applied in order after the environment
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".json" || ext == ".jsonc" {
			// Strip comments and trailing commas; JSON is valid YAML.
			data = jsonc.ToJSON(data)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	for _, o := range overrides {
		o(cfg)
	}
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Name:            "Matter Hub",
			StorageLocation: "./data",
			BasicInformation: BasicInformationConfig{
				VendorID:              0xFFF1,
				VendorName:            "Gray Logic",
				ProductName:           "Matter Hub",
				ProductLabel:          "Home Assistant Matter Bridge",
				HardwareVersion:       1,
				HardwareVersionString: "1.0",
				SoftwareVersion:       1,
				SoftwareVersionString: "1.0.0",
			},
			ReportQueueSize: 1024,
		},
		HomeAssistant: HomeAssistantConfig{
			Reconnect: HAReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			PingInterval: 30,
		},
		Database: DatabaseConfig{
			WALMode:          true,
			BusyTimeout:      5,
			HistoryRetention: 7,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "matterhub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8482,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "matterhub",
			Bucket:        "matter",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MATTERHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("MATTERHUB_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("MATTERHUB_STORAGE_LOCATION"); v != "" {
		cfg.Bridge.StorageLocation = v
	}

	// Home Assistant
	if v := os.Getenv("MATTERHUB_HOME_ASSISTANT_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("MATTERHUB_HOME_ASSISTANT_ACCESS_TOKEN"); v != "" {
		cfg.HomeAssistant.AccessToken = v
	}

	// Database
	if v := os.Getenv("MATTERHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("MATTERHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv("MATTERHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MATTERHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("MATTERHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MATTERHUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("MATTERHUB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("MATTERHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDerivedDefaults fills values that depend on other settings.
func (c *Config) applyDerivedDefaults() {
	if c.Bridge.ID == "" {
		c.Bridge.ID = uuid.NewString()
	}
	if c.Database.Path == "" && c.Bridge.StorageLocation != "" {
		c.Database.Path = filepath.Join(c.Bridge.StorageLocation, "matterhub.db")
	}
}

// validLogLevels mirrors the levels accepted on the command line.
var validLogLevels = map[string]bool{
	"silly": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bridge validation
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.ReportQueueSize < 1 {
		errs = append(errs, "bridge.report_queue_size must be positive")
	}
	if v := c.Bridge.BasicInformation.VendorID; v < 0 || v > 0xFFFE {
		errs = append(errs, "bridge.basic_information.vendor_id must be between 0 and 65534")
	}
	for _, p := range slices.Concat(c.Bridge.Filter.IncludePatterns, c.Bridge.Filter.ExcludePatterns) {
		if _, err := path.Match(p, ""); err != nil {
			errs = append(errs, fmt.Sprintf("bridge.filter pattern %q is invalid", p))
		}
	}

	// Home Assistant validation
	if c.HomeAssistant.URL == "" {
		errs = append(errs, "home_assistant.url is required (set MATTERHUB_HOME_ASSISTANT_URL or --home-assistant-url)")
	} else if u, err := url.Parse(c.HomeAssistant.URL); err != nil || u.Host == "" ||
		!(u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "ws" || u.Scheme == "wss") {
		errs = append(errs, "home_assistant.url must be an http(s) or ws(s) URL")
	}
	if c.HomeAssistant.AccessToken == "" {
		errs = append(errs, "home_assistant.access_token is required (set MATTERHUB_HOME_ASSISTANT_ACCESS_TOKEN or --home-assistant-access-token)")
	} else if err := checkAccessToken(c.HomeAssistant.AccessToken, time.Now()); err != nil {
		errs = append(errs, "home_assistant.access_token "+err.Error())
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Logging validation
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, "logging.level must be one of silly, debug, info, warn, error")
	}
	if f := c.Logging.Format; f != "json" && f != "text" {
		errs = append(errs, "logging.format must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// checkAccessToken sanity-checks a Home Assistant long-lived access token.
// Home Assistant issues these as JWTs; the signature cannot be verified
// here, so only structure and expiry are checked.
func checkAccessToken(token string, now time.Time) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("is not a valid token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("has an invalid expiry: %w", err)
	}
	if exp != nil && exp.Before(now) {
		return fmt.Errorf("expired at %s", exp.Format(time.RFC3339))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetReconnectInitial returns the initial Home Assistant reconnect delay.
func (c *Config) GetReconnectInitial() time.Duration {
	return time.Duration(c.HomeAssistant.Reconnect.InitialDelay) * time.Second
}

// GetReconnectMax returns the maximum Home Assistant reconnect delay.
func (c *Config) GetReconnectMax() time.Duration {
	return time.Duration(c.HomeAssistant.Reconnect.MaxDelay) * time.Second
}

// GetPingInterval returns the Home Assistant keepalive interval.
func (c *Config) GetPingInterval() time.Duration {
	return time.Duration(c.HomeAssistant.PingInterval) * time.Second
}
