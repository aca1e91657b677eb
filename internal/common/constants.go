package common

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvPort           = "PORT"
	EnvModelPath      = "MODEL_PATH"
	EnvScalerPath     = "SCALER_PATH"
	EnvDefaultsPath   = "DEFAULTS_PATH"
	EnvDataPath       = "DATA_PATH"
	EnvMetricsEnabled = "METRICS_ENABLED"
	EnvRandomSeed     = "RANDOM_SEED"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvReadTimeout    = "READ_TIMEOUT"
	EnvWriteTimeout   = "WRITE_TIMEOUT"
	EnvHistoryLimit   = "HISTORY_LIMIT"
)

// Configuration defaults
const (
	DefaultPort           = 8050
	DefaultModelPath      = "car-prediction.model.json"
	DefaultScalerPath     = "scaler.json"
	DefaultDefaultsPath   = "defaults.json"
	DefaultMetricsEnabled = true
	DefaultLogLevel       = "info"
	DefaultLogFormat      = LogFormatJSON
	DefaultHistoryLimit   = 20
)

// Log output formats
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Validation constants
const (
	MinPort         = 1024
	MaxPort         = 65535
	MaxHistoryLimit = 1000
)
