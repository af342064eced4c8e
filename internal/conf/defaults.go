package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults initializes viper with default configuration values
func setDefaults() {
	viper.SetDefault("main.name", "FarmBridge-Notify")
	viper.SetDefault("main.debug", false)
	viper.SetDefault("main.log.path", "logs/notify.log")

	viper.SetDefault("backend.baseurl", "https://api.farmbridge.example.com")
	viper.SetDefault("backend.token", "")
	viper.SetDefault("backend.tokenfile", "")
	viper.SetDefault("backend.timeout", 30*time.Second)

	viper.SetDefault("mqtt.broker", "tcp://push.farmbridge.example.com:1883")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topicprefix", "farmbridge")

	viper.SetDefault("user.id", "")
	viper.SetDefault("user.type", "farmer")
	viper.SetDefault("user.premium", false)

	viper.SetDefault("notification.maxnotifications", 1000)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "127.0.0.1:8798")

	viper.SetDefault("forward.urls", []string{})
	viper.SetDefault("forward.timeout", 10*time.Second)

	viper.SetDefault("payment.enabled", false)
	viper.SetDefault("payment.dbpath", "orders.db")
	viper.SetDefault("payment.callbacklisten", "127.0.0.1:8799")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}

// defaultSettings returns a Settings struct mirroring the viper defaults,
// used when generating a config file.
func defaultSettings() *Settings {
	s := &Settings{}
	s.Main.Name = "FarmBridge-Notify"
	s.Main.Log.Path = "logs/notify.log"
	s.Backend.BaseURL = "https://api.farmbridge.example.com"
	s.Backend.Timeout = 30 * time.Second
	s.MQTT.Broker = "tcp://push.farmbridge.example.com:1883"
	s.MQTT.TopicPrefix = "farmbridge"
	s.User.Type = "farmer"
	s.Notification.MaxNotifications = 1000
	s.Metrics.Listen = "127.0.0.1:8798"
	s.Forward.Timeout = 10 * time.Second
	s.Payment.DBPath = "orders.db"
	s.Payment.CallbackListen = "127.0.0.1:8799"
	return s
}
