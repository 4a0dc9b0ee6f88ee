package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	JWT        JWTConfig
	FCM        FCMConfig
	Expo       ExpoConfig
	Points     PointsConfig
	Credential CredentialConfig
	Scheduler  SchedulerConfig
	LogLevel   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// FCMConfig holds Firebase Cloud Messaging configuration
type FCMConfig struct {
	CredentialsFile string
	Mock            bool
}

// ExpoConfig holds Expo push-bridge configuration
type ExpoConfig struct {
	BaseURL     string
	AccessToken string
	Mock        bool
}

// PointsConfig holds points-ledger configuration. MaxBatchWrites keeps a
// margin under the store's per-batch write ceiling.
type PointsConfig struct {
	MaxBatchWrites int
}

// CredentialConfig holds QR credential configuration
type CredentialConfig struct {
	TTLHours     int
	HistoryLimit int
}

// SchedulerConfig holds background scheduler configuration
type SchedulerConfig struct {
	Enabled      bool
	SweepMinutes int
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "civiclink")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("FCM.Mock", true)
	viper.SetDefault("Expo.BaseURL", "https://exp.host/--/api/v2/push/send")
	viper.SetDefault("Expo.Mock", true)
	viper.SetDefault("Points.MaxBatchWrites", 450) // margin under Mongo's practical bulk ceiling
	viper.SetDefault("Credential.TTLHours", 24)
	viper.SetDefault("Credential.HistoryLimit", 10)
	viper.SetDefault("Scheduler.Enabled", true)
	viper.SetDefault("Scheduler.SweepMinutes", 5)
	viper.SetDefault("LogLevel", "info")
}
