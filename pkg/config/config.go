package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ScaleConfig is one analysis timescale, measured in trades.
type ScaleConfig struct {
	Name              string  `yaml:"name" validate:"required"`
	TradeCount        int     `yaml:"trade_count" validate:"gt=0"`
	SigmaWindowTrades int     `yaml:"sigma_window_trades" validate:"gt=0"`
	SigmaK            float64 `yaml:"sigma_k" validate:"gt=0"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	// Mode selects the event source: live venue feeds, the synthetic
	// generator, or replay from a recorded event log.
	Mode  string `yaml:"mode" default:"live" validate:"oneof=live synthetic replay"`
	Venue string `yaml:"venue" default:"binance" validate:"oneof=binance okx"`

	Instruments []string      `yaml:"instruments"`
	Scales      []ScaleConfig `yaml:"scales" validate:"dive"`

	SnapshotEvery int `yaml:"snapshot_every_trades" default:"200" validate:"gt=0"`
	BookDepth     int `yaml:"book_depth" default:"20" validate:"gt=0"`
	QueueSize     int `yaml:"queue_size" default:"5000" validate:"gt=0"`

	Cone struct {
		Steps      int   `yaml:"steps" default:"250" validate:"gt=0"`
		NPaths     int   `yaml:"n_paths" default:"2000" validate:"gt=0"`
		GridPoints int   `yaml:"grid_points" default:"401" validate:"gt=1"`
		Seed       int64 `yaml:"seed" default:"7"`
	} `yaml:"cone"`

	Recorder struct {
		Enabled    bool   `yaml:"enabled" default:"true"`
		Path       string `yaml:"path" default:"data/raw/events.jsonl"`
		FlushEvery int    `yaml:"flush_every" default:"200" validate:"gt=0"`
	} `yaml:"recorder"`

	Replay struct {
		Path      string `yaml:"path" default:"data/raw/events.jsonl"`
		MaxEvents int    `yaml:"max_events"`
	} `yaml:"replay"`

	Synthetic struct {
		Symbol     string  `yaml:"symbol" default:"BTC"`
		Steps      int     `yaml:"steps" default:"5000" validate:"gt=0"`
		StartPrice float64 `yaml:"start_price" default:"100000"`
	} `yaml:"synthetic"`

	Binance struct {
		Symbols     map[string]string `yaml:"symbols"`
		DepthSpeed  string            `yaml:"depth_speed" default:"100ms" validate:"oneof=100ms 250ms 500ms"`
		OIPoll      time.Duration     `yaml:"oi_poll" default:"5s"`
		BasisPoll   time.Duration     `yaml:"basis_poll" default:"60s"`
		BasisPeriod string            `yaml:"basis_period" default:"5m"`
	} `yaml:"binance"`

	OKX struct {
		InstIDs map[string]string `yaml:"inst_ids"`
	} `yaml:"okx"`

	Backoff struct {
		Initial time.Duration `yaml:"initial" default:"1s"`
		Max     time.Duration `yaml:"max" default:"30s"`
	} `yaml:"backoff"`

	Snapshots struct {
		JSONL struct {
			Enabled    bool   `yaml:"enabled" default:"true"`
			Path       string `yaml:"path" default:"data/derived/snapshots.jsonl"`
			FlushEvery int    `yaml:"flush_every" default:"200" validate:"gt=0"`
		} `yaml:"jsonl"`
		Kafka struct {
			Enabled      bool          `yaml:"enabled"`
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"conecast.snapshots"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Enabled      bool          `yaml:"enabled"`
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port" default:"9000"`
			Database     string        `yaml:"database" default:"conecast"`
			User         string        `yaml:"user" default:"default"`
			Password     string        `yaml:"password"`
			AsyncInsert  bool          `yaml:"async_insert" default:"true"`
			WaitForAsync bool          `yaml:"wait_for_async_insert"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"clickhouse"`
		Redis struct {
			Enabled  bool          `yaml:"enabled"`
			Addr     string        `yaml:"addr" default:"localhost:6379"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			TTL      time.Duration `yaml:"ttl" default:"1h"`
		} `yaml:"redis"`
	} `yaml:"snapshots"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// Load reads a YAML configuration file, applies defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Scales) == 0 {
		c.Scales = DefaultScales()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CONECAST_INSTRUMENTS"); v != "" {
		c.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Snapshots.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Snapshots.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Snapshots.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// DefaultScales returns the four standard timescales.
func DefaultScales() []ScaleConfig {
	return []ScaleConfig{
		{Name: "micro", TradeCount: 500, SigmaWindowTrades: 2000, SigmaK: 1.0},
		{Name: "minor", TradeCount: 2000, SigmaWindowTrades: 5000, SigmaK: 1.5},
		{Name: "major", TradeCount: 8000, SigmaWindowTrades: 15000, SigmaK: 2.0},
		{Name: "macro", TradeCount: 30000, SigmaWindowTrades: 60000, SigmaK: 3.0},
	}
}

var validate = validator.New()

// Validate checks structural constraints plus the cross-field ones the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Mode == "live" {
		if len(c.Instruments) == 0 {
			return fmt.Errorf("instruments required in live mode")
		}
		switch c.Venue {
		case "binance":
			for _, inst := range c.Instruments {
				if c.Binance.Symbols[inst] == "" {
					return fmt.Errorf("binance.symbols missing mapping for %q", inst)
				}
			}
		case "okx":
			for _, inst := range c.Instruments {
				if c.OKX.InstIDs[inst] == "" {
					return fmt.Errorf("okx.inst_ids missing mapping for %q", inst)
				}
			}
		}
	}
	if c.Snapshots.Kafka.Enabled && len(c.Snapshots.Kafka.Brokers) == 0 {
		return fmt.Errorf("snapshots.kafka.brokers required when kafka sink enabled")
	}
	if c.Snapshots.ClickHouse.Enabled && c.Snapshots.ClickHouse.Host == "" {
		return fmt.Errorf("snapshots.clickhouse.host required when clickhouse sink enabled")
	}
	return nil
}
