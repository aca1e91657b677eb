package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"car-price-predictor/internal/common"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port           int
	ModelPath      string
	ScalerPath     string
	DefaultsPath   string
	DataPath       string
	MetricsEnabled bool
	RandomSeed     uint64
	LogLevel       string
	LogFormat      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	HistoryLimit   int
}

type ConfigFile struct {
	Server struct {
		Port           int    `yaml:"port"`
		ReadTimeout    string `yaml:"readTimeout"`
		WriteTimeout   string `yaml:"writeTimeout"`
		MetricsEnabled *bool  `yaml:"metricsEnabled"`
	} `yaml:"server"`

	Artifacts struct {
		ModelPath    string `yaml:"modelPath"`
		ScalerPath   string `yaml:"scalerPath"`
		DefaultsPath string `yaml:"defaultsPath"`
	} `yaml:"artifacts"`

	Pipeline struct {
		RandomSeed uint64 `yaml:"randomSeed"`
	} `yaml:"pipeline"`

	Storage struct {
		DataPath     string `yaml:"dataPath"`
		HistoryLimit int    `yaml:"historyLimit"`
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := time.ParseDuration(config.Server.ReadTimeout)
	if err != nil {
		readTimeout = 10 * time.Second
	}

	writeTimeout, err := time.ParseDuration(config.Server.WriteTimeout)
	if err != nil {
		writeTimeout = 10 * time.Second
	}

	metricsEnabled := common.DefaultMetricsEnabled
	if config.Server.MetricsEnabled != nil {
		metricsEnabled = *config.Server.MetricsEnabled
	}

	// Override with environment variables if they exist
	settings := Settings{
		Port:           getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, orDefault(config.Artifacts.ModelPath, common.DefaultModelPath)),
		ScalerPath:     getEnvOrDefault(common.EnvScalerPath, orDefault(config.Artifacts.ScalerPath, common.DefaultScalerPath)),
		DefaultsPath:   getEnvOrDefault(common.EnvDefaultsPath, orDefault(config.Artifacts.DefaultsPath, common.DefaultDefaultsPath)),
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.Storage.DataPath),
		MetricsEnabled: getBoolOrDefault(common.EnvMetricsEnabled, metricsEnabled),
		RandomSeed:     getUintOrDefault(common.EnvRandomSeed, config.Pipeline.RandomSeed),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
		ReadTimeout:    getDurationOrDefault(common.EnvReadTimeout, readTimeout),
		WriteTimeout:   getDurationOrDefault(common.EnvWriteTimeout, writeTimeout),
		HistoryLimit:   getIntFromEnvOrConfig(common.EnvHistoryLimit, config.Storage.HistoryLimit, common.DefaultHistoryLimit),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:           getIntOrDefault(common.EnvPort, common.DefaultPort),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ScalerPath:     getEnvOrDefault(common.EnvScalerPath, common.DefaultScalerPath),
		DefaultsPath:   getEnvOrDefault(common.EnvDefaultsPath, common.DefaultDefaultsPath),
		DataPath:       os.Getenv(common.EnvDataPath), // optional
		MetricsEnabled: getBoolOrDefault(common.EnvMetricsEnabled, common.DefaultMetricsEnabled),
		RandomSeed:     getUintOrDefault(common.EnvRandomSeed, 0),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		ReadTimeout:    getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:   getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		HistoryLimit:   getIntOrDefault(common.EnvHistoryLimit, common.DefaultHistoryLimit),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Addr returns the listen address for the HTTP server.
func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings checks ranges and required paths
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	// Artifact paths
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.ScalerPath == "" {
		return fmt.Errorf("scaler path cannot be empty")
	}
	if settings.DefaultsPath == "" {
		return fmt.Errorf("defaults path cannot be empty")
	}

	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}

	if settings.HistoryLimit <= 0 || settings.HistoryLimit > common.MaxHistoryLimit {
		return fmt.Errorf("history limit must be between 1 and %d, got %d", common.MaxHistoryLimit, settings.HistoryLimit)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	if settings.LogFormat != common.LogFormatJSON && settings.LogFormat != common.LogFormatConsole {
		return fmt.Errorf("log format must be %q or %q, got %q", common.LogFormatJSON, common.LogFormatConsole, settings.LogFormat)
	}

	return nil
}
