package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	WarehouseDemo bool   `mapstructure:"WAREHOUSE_DEMO"`

	AIURL          string        `mapstructure:"AI_URL"`
	LLMBaseURL     string        `mapstructure:"LLM_BASE_URL"`
	LLMAPIKey      string        `mapstructure:"LLM_API_KEY"`
	LLMModel       string        `mapstructure:"LLM_MODEL"`
	LLMTemperature float32       `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxTokens   int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMRPM         int           `mapstructure:"LLM_RPM"`
	LLMCacheTTL    time.Duration `mapstructure:"LLM_CACHE_TTL"`

	RedisURL         string        `mapstructure:"REDIS_URL"`
	OverviewCacheTTL time.Duration `mapstructure:"OVERVIEW_CACHE_TTL"`
	SegmentStorePath string        `mapstructure:"SEGMENT_STORE_PATH"`

	KafkaBrokers       string `mapstructure:"KAFKA_BROKERS"`
	KafkaSegmentsTopic string `mapstructure:"KAFKA_SEGMENTS_TOPIC"`

	ScoringSeed          uint64        `mapstructure:"SCORING_SEED"`
	ScoringWorkers       int           `mapstructure:"SCORING_WORKERS"`
	SensitivityThreshold float64       `mapstructure:"SENSITIVITY_THRESHOLD"`
	ROIHighThreshold     float64       `mapstructure:"ROI_HIGH_THRESHOLD"`
	ROIHighLabel         string        `mapstructure:"ROI_HIGH_LABEL"`
	ROILowLabel          string        `mapstructure:"ROI_LOW_LABEL"`
	DefaultAvgCLV        float64       `mapstructure:"DEFAULT_AVG_CLV"`
	MaxSegmentSize       int           `mapstructure:"MAX_SEGMENT_SIZE"`
	CartLookback         time.Duration `mapstructure:"CART_LOOKBACK"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration Load would produce with an empty
// environment. Tests and the CLI build on it.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("WAREHOUSE_DEMO", false)

	v.SetDefault("AI_URL", "")
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TEMPERATURE", 0.3)
	v.SetDefault("LLM_MAX_TOKENS", 8192)
	v.SetDefault("LLM_RPM", 60)
	v.SetDefault("LLM_CACHE_TTL", "10m")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OVERVIEW_CACHE_TTL", "10m")
	v.SetDefault("SEGMENT_STORE_PATH", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_SEGMENTS_TOPIC", "segments.created")

	v.SetDefault("SCORING_SEED", 0)
	v.SetDefault("SCORING_WORKERS", 4)
	v.SetDefault("SENSITIVITY_THRESHOLD", 0.65)
	v.SetDefault("ROI_HIGH_THRESHOLD", 0.6)
	v.SetDefault("ROI_HIGH_LABEL", "4-6x")
	v.SetDefault("ROI_LOW_LABEL", "2-4x")
	v.SetDefault("DEFAULT_AVG_CLV", 0.7)
	v.SetDefault("MAX_SEGMENT_SIZE", 50000)
	v.SetDefault("CART_LOOKBACK", "168h")
}
