// Package conf handles the loading and management of client settings.
// Configuration is read from config.yaml with viper, with environment
// variable overrides under the FARMBRIDGE_ prefix.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/farmbridge/notify/internal/errors"
)

// MainSettings contains process-wide options.
type MainSettings struct {
	Name  string `yaml:"name"`  // client instance name, used as MQTT client id prefix
	Debug bool   `yaml:"debug"` // enable debug logging
	Log   struct {
		Path string `yaml:"path"` // file log destination
	} `yaml:"log"`
}

// BackendSettings describes the REST backend connection.
type BackendSettings struct {
	BaseURL   string        `yaml:"baseurl"`
	Token     string        `yaml:"token"`     // bearer credential; empty means unauthenticated session
	TokenFile string        `yaml:"tokenfile"` // optional file holding the bearer credential
	Timeout   time.Duration `yaml:"timeout"`
}

// MQTTSettings describes the push channel broker.
type MQTTSettings struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topicprefix"` // alerts delivered on <prefix>/notifications/<userid>
}

// UserSettings carries the identity sent in the registration handshake.
type UserSettings struct {
	ID      string `yaml:"id"`
	Type    string `yaml:"type"` // "farmer" or "buyer"
	Premium bool   `yaml:"premium"`
}

// NotificationSettings tunes the local cache.
type NotificationSettings struct {
	MaxNotifications int `yaml:"maxnotifications"`
}

// MetricsSettings configures the Prometheus exposition endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ForwardSettings configures external alert forwarding via shoutrrr URLs.
type ForwardSettings struct {
	URLs    []string      `yaml:"urls"`
	Timeout time.Duration `yaml:"timeout"`
}

// PaymentSettings configures pending-order storage and the gateway
// callback listener.
type PaymentSettings struct {
	Enabled        bool   `yaml:"enabled"`
	DBPath         string `yaml:"dbpath"`
	CallbackListen string `yaml:"callbacklisten"`
}

// SentrySettings configures optional error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// Settings is the root configuration structure.
type Settings struct {
	Main         MainSettings         `yaml:"main"`
	Backend      BackendSettings      `yaml:"backend"`
	MQTT         MQTTSettings         `yaml:"mqtt"`
	User         UserSettings         `yaml:"user"`
	Notification NotificationSettings `yaml:"notification"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	Forward      ForwardSettings      `yaml:"forward"`
	Payment      PaymentSettings      `yaml:"payment"`
	Sentry       SentrySettings       `yaml:"sentry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	settingsOnce     sync.Once
)

// Load reads the configuration and returns the populated Settings.
// A missing config file is not an error; defaults and environment
// variables apply.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, err
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := validate(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("FARMBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return nil
}

func validate(s *Settings) error {
	if s.Notification.MaxNotifications <= 0 {
		return errors.Newf("notification.maxnotifications must be positive, got %d", s.Notification.MaxNotifications).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Backend.Timeout <= 0 {
		s.Backend.Timeout = 30 * time.Second
	}
	return nil
}

// Setting returns the current settings, loading them on first use.
func Setting() *Settings {
	settingsOnce.Do(func() {
		settingsMutex.RLock()
		loaded := settingsInstance != nil
		settingsMutex.RUnlock()
		if !loaded {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetTestSettings installs settings for tests.
func SetTestSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}

// GetDefaultConfigPaths returns the search paths for config.yaml:
// the user config dir and the working directory.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return []string{"."}, nil //nolint:nilerr // fall back to cwd when no home is resolvable
	}
	return []string{filepath.Join(configDir, "farmbridge-notify"), "."}, nil
}

// WriteDefaultConfig generates a config.yaml with default values at the
// given path. Used on first run so the user has a file to edit.
func WriteDefaultConfig(path string) error {
	defaults := defaultSettings()

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// BearerToken resolves the bearer credential: the inline token wins,
// otherwise the token file is read. Empty result means no session.
func (b *BackendSettings) BearerToken() string {
	if b.Token != "" {
		return b.Token
	}
	if b.TokenFile != "" {
		data, err := os.ReadFile(b.TokenFile)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	return ""
}
