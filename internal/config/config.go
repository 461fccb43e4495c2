package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Watch/internal/store"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string   `mapstructure:"mode"`
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	StaticPath     string   `mapstructure:"static_path"`
	Secret         string   `mapstructure:"secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	WS        WSConfig     `mapstructure:"ws"`
	Room      RoomConfig   `mapstructure:"room"`
	Relay     RelayConfig  `mapstructure:"relay"`
	Directory store.Config `mapstructure:"directory"`
}

type WSConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
}

type RoomConfig struct {
	IDLength      int           `mapstructure:"id_length"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RelayConfig struct {
	// Backpressure is "kick" or "drop".
	Backpressure string        `mapstructure:"backpressure"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) on top of the
// built-in defaults. Environment variables override both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("secret", "SESSION_SECRET")
	_ = v.BindEnv("directory.redis.address", "REDIS_ADDRESS")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WS.PingPeriod >= cfg.WS.PongWait {
		return nil, fmt.Errorf("ws.ping_period (%s) must be shorter than ws.pong_wait (%s)", cfg.WS.PingPeriod, cfg.WS.PongWait)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Directory: %s\n", cfg.Mode, cfg.Port, cfg.Directory.Driver)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "5s")
	v.SetDefault("ws.send_buffer", 32)

	v.SetDefault("room.id_length", 6)
	v.SetDefault("room.grace_period", "10m")
	v.SetDefault("room.sweep_interval", "1m")

	v.SetDefault("relay.backpressure", "kick")
	v.SetDefault("relay.rate_limit", 50)
	v.SetDefault("relay.rate_interval", "1s")

	v.SetDefault("directory.driver", "memory")
	v.SetDefault("directory.prefix", "watch")
	v.SetDefault("directory.ttl", "24h")
	v.SetDefault("directory.redis.address", "localhost:6379")
	v.SetDefault("directory.redis.db", 0)
}
