package configs

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultInstructions Abby persona sent with every run
const DefaultInstructions = `당신은 어르신을 돕는 시니어 도우미입니다.
당신의 이름은 '애비'입니다.
답변은 짧게 구성을 하며, 어르신을 대할 때는 친근하고 따뜻한 말투를 사용해야합니다.
복잡한 정보는 간단하게 풀어 설명하고, 쉬운 단어를 사용하여 어르신이 편하게 이해할 수 있도록 돕습니다.
어르신이 이전 대화를 기억하지 못할 때, 간단하게 요약해서 설명해 주세요. 예를 들어, '조금 전에 말씀하셨던 내용은 ~였습니다.'와 같은 방식으로 대화를 요약하세요.
사용자는 대화 모드를 수행중입니다. 특수문자를 사용하지말고 대화형식으로 답변하세요`

// JWTConfig user token settings
type JWTConfig struct {
	Key         string `yaml:"key" json:"key"`
	Issuer      string `yaml:"issuer" json:"issuer"`
	ExpireHours int    `yaml:"expire_hours" json:"expire_hours"`
}

// RedisConfig Redis configuration, empty Addr disables redis
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// DBConfig database configuration
type DBConfig struct {
	Dialect string `yaml:"dialect" json:"dialect"` // postgres / sqlite
	DSN     string `yaml:"dsn" json:"dsn"`
}

// AssistantConfig external assistant service settings
type AssistantConfig struct {
	APIKey       string `yaml:"api_key" json:"api_key"`
	BaseURL      string `yaml:"base_url" json:"base_url"`
	AssistantID  string `yaml:"assistant_id" json:"assistant_id"`
	Instructions string `yaml:"instructions" json:"instructions"`
	RunTimeout   int    `yaml:"run_timeout" json:"run_timeout"`     // seconds
	PollInterval int    `yaml:"poll_interval" json:"poll_interval"` // milliseconds
}

// WeatherConfig KMA forecast API settings
type WeatherConfig struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	ServiceKey string `yaml:"service_key" json:"service_key"`
	NX         int    `yaml:"nx" json:"nx"`
	NY         int    `yaml:"ny" json:"ny"`
	Timeout    int    `yaml:"timeout" json:"timeout"` // seconds
}

// Config main configuration
type Config struct {
	Server struct {
		IP   string `yaml:"ip" json:"ip"`
		Port int    `yaml:"port" json:"port"`
		Mode string `yaml:"mode" json:"mode"` // gin mode: debug / release / test
	} `yaml:"server" json:"server"`

	JWT JWTConfig `yaml:"jwt" json:"jwt"`

	RedisCache RedisConfig `yaml:"redis_cache" json:"redis_cache"`

	DB DBConfig `yaml:"db" json:"db"`

	Log struct {
		LogLevel string `yaml:"log_level" json:"log_level"`
		LogDir   string `yaml:"log_dir" json:"log_dir"`
		LogFile  string `yaml:"log_file" json:"log_file"`
	} `yaml:"log" json:"log"`

	Assistant AssistantConfig `yaml:"assistant" json:"assistant"`

	Weather WeatherConfig `yaml:"weather" json:"weather"`

	Metrics struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
	} `yaml:"metrics" json:"metrics"`

	Swagger struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
	} `yaml:"swagger" json:"swagger"`
}

// keys that may be supplied only through the environment
var envBindings = map[string][]string{
	"assistant.api_key":      {"ABBY_ASSISTANT_API_KEY", "OPENAI_API_KEY"},
	"assistant.assistant_id": {"ABBY_ASSISTANT_ASSISTANT_ID", "OPENAI_ASSISTANT_ID"},
	"assistant.base_url":     {"ABBY_ASSISTANT_BASE_URL"},
	"db.dialect":             {"ABBY_DB_DIALECT"},
	"db.dsn":                 {"ABBY_DB_DSN"},
	"jwt.key":                {"ABBY_JWT_KEY"},
	"redis_cache.addr":       {"ABBY_REDIS_CACHE_ADDR"},
	"redis_cache.password":   {"ABBY_REDIS_CACHE_PASSWORD"},
	"weather.service_key":    {"ABBY_WEATHER_SERVICE_KEY"},
	"server.port":            {"ABBY_SERVER_PORT"},
	"log.log_level":          {"ABBY_LOG_LOG_LEVEL"},
}

// ToString yaml dump with secrets masked, for startup logs
func (cfg *Config) ToString() string {
	masked := *cfg
	masked.JWT.Key = mask(masked.JWT.Key)
	masked.RedisCache.Password = mask(masked.RedisCache.Password)
	masked.Assistant.APIKey = mask(masked.Assistant.APIKey)
	masked.Weather.ServiceKey = mask(masked.Weather.ServiceKey)
	masked.DB.DSN = mask(masked.DB.DSN)
	data, _ := yaml.Marshal(&masked)
	return string(data)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "******"
}

// RunTimeout bound on one assistant run
func (cfg *Config) RunTimeout() time.Duration {
	return time.Duration(cfg.Assistant.RunTimeout) * time.Second
}

// PollInterval delay between run status polls
func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.Assistant.PollInterval) * time.Millisecond
}

// Addr listen address of the HTTP server
func (cfg *Config) Addr() string {
	return cfg.Server.IP + ":" + strconv.Itoa(cfg.Server.Port)
}

func (cfg *Config) setDefaults() {
	cfg.Server.IP = "0.0.0.0"
	cfg.Server.Port = 8000
	cfg.Server.Mode = "release"

	cfg.JWT.Issuer = "abby-ai-server"
	cfg.JWT.ExpireHours = 24 * 7

	cfg.DB.Dialect = "sqlite"
	cfg.DB.DSN = "abby.db"

	cfg.Log.LogDir = "logs"
	cfg.Log.LogLevel = "INFO"
	cfg.Log.LogFile = "server.log"

	cfg.Assistant.Instructions = DefaultInstructions
	cfg.Assistant.RunTimeout = 120
	cfg.Assistant.PollInterval = 500

	cfg.Weather.BaseURL = "https://apis.data.go.kr/1360000/VilageFcstInfoService_2.0"
	cfg.Weather.NX = 60
	cfg.Weather.NY = 127
	cfg.Weather.Timeout = 10

	cfg.Metrics.Enabled = true
	cfg.Swagger.Enabled = true
}

// LoadConfig reads path (yaml) over the defaults, then applies ABBY_* env overrides.
// A missing file is not an error.
func LoadConfig(path string) (*Config, string, error) {
	if path == "" {
		path = "config.yaml"
	}
	config := &Config{}
	config.setDefaults()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ABBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, path, err
		}
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, path, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, path, err
	}

	if err := v.Unmarshal(config, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, path, err
	}
	if err := config.validate(); err != nil {
		return nil, path, err
	}

	return config, path, nil
}

func (cfg *Config) validate() error {
	switch cfg.DB.Dialect {
	case "postgres", "sqlite":
	default:
		return errors.New("db.dialect must be postgres or sqlite")
	}
	if cfg.JWT.Key == "" {
		return errors.New("jwt.key is required (ABBY_JWT_KEY)")
	}
	if cfg.Assistant.RunTimeout <= 0 {
		return errors.New("assistant.run_timeout must be positive")
	}
	if cfg.Assistant.PollInterval <= 0 {
		return errors.New("assistant.poll_interval must be positive")
	}
	return nil
}
