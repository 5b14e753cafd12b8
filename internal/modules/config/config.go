package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	envPrefix         = "DASHBOARD"

	defaultConfigFile = "values_local.yaml"
	defaultConfigDir  = "configs"
)

// Config ...
type Config struct {
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
		StaticDir  string `yaml:"static_dir"`
		LogLevel   string `yaml:"log_level"`
	} `yaml:"service"`

	Bridge    Bridge    `yaml:"bridge"`
	Log       Log       `yaml:"log"`
	Cache     Cache     `yaml:"cache"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Relay     Relay     `yaml:"relay"`

	Candles struct {
		MaxCandles int `yaml:"max_candles"`
	} `yaml:"candles"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

type Bridge struct {
	HTTPURL        string `yaml:"http_url"`
	WSURL          string `yaml:"ws_url"`
	MaxBytes       int    `yaml:"max_bytes"`
	ConnectTimeout int    `yaml:"connect_timeout_seconds"`
	ReadTimeout    int    `yaml:"read_timeout_seconds"`
}

type Log struct {
	SSHTarget      string `yaml:"ssh_target"`
	Path           string `yaml:"path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxStdoutBytes int    `yaml:"max_stdout_bytes"`
}

// Cache все значения в секундах.
type Cache struct {
	TTL      int          `yaml:"ttl"`
	StaleTTL int          `yaml:"stale_ttl"`
	MaxItems int          `yaml:"max_items"`
	TTLs     ResourceTTLs `yaml:"ttls"`
}

type ResourceTTLs struct {
	Status    int `yaml:"status"`
	Account   int `yaml:"account"`
	Orders    int `yaml:"orders"`
	Quotes    int `yaml:"quotes"`
	Positions int `yaml:"positions"`
	Levels    int `yaml:"levels"`
	Trades    int `yaml:"trades"`
	Signals   int `yaml:"signals"`
	Candles   int `yaml:"candles"`
	Swings    int `yaml:"swings"`
}

type RateLimit struct {
	WindowSeconds int `yaml:"window_seconds"`
	MaxRequests   int `yaml:"max_requests"`
}

// Relay таймауты в миллисекундах.
type Relay struct {
	SendTimeoutMs  int `yaml:"send_timeout_ms"`
	IdleTimeoutMs  int `yaml:"idle_timeout_ms"`
	PingIntervalMs int `yaml:"ping_interval_ms"`
}

func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func Millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Default значения, с которыми сервис работает без файла конфигурации.
func Default() Config {
	var c Config
	c.Service.Host = "0.0.0.0"
	c.Service.PublicPort = 3004
	c.Service.AdminPort = 3005
	c.Service.StaticDir = "static"
	c.Service.LogLevel = "info"

	c.Bridge = Bridge{
		HTTPURL:        "http://100.66.60.10:8080",
		WSURL:          "ws://100.66.60.10:9998",
		MaxBytes:       4 * 1024 * 1024,
		ConnectTimeout: 5,
		ReadTimeout:    10,
	}
	c.Log = Log{
		SSHTarget:      "ryans@100.66.60.10",
		Path:           `C:\Users\ryans\clawd\agents\trader\futures\trader-error.log`,
		TimeoutSeconds: 15,
		MaxStdoutBytes: 256 * 1024,
	}
	c.Cache = Cache{
		TTL:      5,
		StaleTTL: 60,
		MaxItems: 256,
		TTLs: ResourceTTLs{
			Status:    2,
			Account:   5,
			Orders:    2,
			Quotes:    1,
			Positions: 1,
			Levels:    3,
			Trades:    2,
			Signals:   2,
			Candles:   2,
			Swings:    10,
		},
	}
	c.RateLimit = RateLimit{WindowSeconds: 60, MaxRequests: 1800}
	c.Relay = Relay{SendTimeoutMs: 1000, IdleTimeoutMs: 60000, PingIntervalMs: 20000}
	c.Candles.MaxCandles = 5000
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831

	return c
}

func NewConfig() (*Config, error) {
	return Load(os.Getenv(configFilePathENV))
}

// Load читает .env, yaml файл (если он есть) и env переопределения.
// path пустой => configs/values_local.yaml; имя без каталога ищется в configs/.
func Load(path string) (cfg *Config, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "config.Load")
		}
	}()

	_ = godotenv.Load()

	config := Default()

	if path == "" {
		path = defaultConfigFile
	}
	if filepath.Dir(path) == "." && !strings.HasPrefix(path, ".") {
		path = filepath.Join(defaultConfigDir, path)
	}

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		if err = yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
	case os.IsNotExist(err):
		// без файла остаёмся на дефолтах
	default:
		return nil, errors.Wrapf(err, "open %s", path)
	}

	applyEnv(&config)

	return &config, nil
}

func applyEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	positiveInt(v, "cache_ttl", &c.Cache.TTL)
	positiveInt(v, "cache_stale_ttl", &c.Cache.StaleTTL)
	positiveInt(v, "cache_max_items", &c.Cache.MaxItems)
	positiveInt(v, "max_bridge_bytes", &c.Bridge.MaxBytes)
	positiveInt(v, "max_candles", &c.Candles.MaxCandles)
	positiveInt(v, "max_ssh_stdout_bytes", &c.Log.MaxStdoutBytes)
	positiveInt(v, "rate_limit_window_seconds", &c.RateLimit.WindowSeconds)
	positiveInt(v, "rate_limit_max_requests", &c.RateLimit.MaxRequests)
	positiveInt(v, "public_port", &c.Service.PublicPort)
	positiveInt(v, "admin_port", &c.Service.AdminPort)

	stringValue(v, "bridge_url", &c.Bridge.HTTPURL)
	stringValue(v, "bridge_ws_url", &c.Bridge.WSURL)
	stringValue(v, "ssh_target", &c.Log.SSHTarget)
	stringValue(v, "log_path", &c.Log.Path)
	stringValue(v, "static_dir", &c.Service.StaticDir)
	stringValue(v, "log_level", &c.Service.LogLevel)

	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
}

// positiveInt переписывает dst только положительным целым из env.
func positiveInt(v *viper.Viper, key string, dst *int) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return
	}
	*dst = n
}

func stringValue(v *viper.Viper, key string, dst *string) {
	if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
		*dst = raw
	}
}
