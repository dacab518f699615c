package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Mapstructure tags map
// environment variables and config file keys.
type Config struct {
	// Server Configuration
	ServerAddress string `mapstructure:"SERVER_ADDRESS"` // e.g. ":8080"

	// Vision provider (structured, image-capable)
	GeminiAPIKeys  string `mapstructure:"GEMINI_API_KEYS"` // comma-separated credential pool
	GeminiModel    string `mapstructure:"GEMINI_MODEL"`
	GeminiEndpoint string `mapstructure:"GEMINI_ENDPOINT"`

	// Fast text provider (OpenAI-compatible)
	GroqAPIKeys string `mapstructure:"GROQ_API_KEYS"` // comma-separated credential pool
	GroqModel   string `mapstructure:"GROQ_MODEL"`
	GroqBaseURL string `mapstructure:"GROQ_BASE_URL"`

	// Design-feature pre-processor (optional; defaults apply on failure)
	VisionFeatureEndpoint string `mapstructure:"VISION_FEATURE_ENDPOINT"`

	// Cloud session sync service (optional)
	SessionSyncURL string `mapstructure:"SESSION_SYNC_URL"`
	SessionSyncKey string `mapstructure:"SESSION_SYNC_KEY"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file ('config.yaml') not found in specified path, relying solely on environment variables.")
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Printf("Using configuration file: %s", viper.ConfigFileUsed())
	}

	// AutomaticEnv alone does not surface env vars through Unmarshal for keys
	// viper has never seen, so bind them explicitly.
	for _, key := range []string{
		"SERVER_ADDRESS",
		"GEMINI_API_KEYS", "GEMINI_MODEL", "GEMINI_ENDPOINT",
		"GROQ_API_KEYS", "GROQ_MODEL", "GROQ_BASE_URL",
		"VISION_FEATURE_ENDPOINT",
		"SESSION_SYNC_URL", "SESSION_SYNC_KEY",
	} {
		_ = viper.BindEnv(key)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if config.ServerAddress == "" {
		config.ServerAddress = ":8080"
	}
	if len(config.GeminiKeys()) == 0 && len(config.GroqKeys()) == 0 {
		return Config{}, errors.New("no provider credentials configured: set GEMINI_API_KEYS and/or GROQ_API_KEYS")
	}
	if len(config.GeminiKeys()) == 0 {
		log.Println("WARN: GEMINI_API_KEYS is not set; the vision pipeline will be unavailable.")
	}
	if len(config.GroqKeys()) == 0 {
		log.Println("WARN: GROQ_API_KEYS is not set; the fast text pipeline will be unavailable.")
	}

	return
}

// GeminiKeys splits the comma-separated pool, dropping empty entries.
func (c *Config) GeminiKeys() []string { return splitKeys(c.GeminiAPIKeys) }

// GroqKeys splits the comma-separated pool, dropping empty entries.
func (c *Config) GroqKeys() []string { return splitKeys(c.GroqAPIKeys) }

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
