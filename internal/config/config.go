package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendDevfs  = "devfs"
	BackendPeriph = "periph"
	BackendSim    = "sim"
)

type Config struct {
	GPS     GPSConfig     `yaml:"gps"`
	Sim     SimConfig     `yaml:"sim"`
	NMEAUDP NMEAUDPConfig `yaml:"nmea_udp"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Web     WebConfig     `yaml:"web"`
	Log     LogConfig     `yaml:"log"`
}

type GPSConfig struct {
	// Backend selects the bus implementation: devfs, periph or sim.
	Backend string `yaml:"backend"`
	// Bus is a /dev/i2c-N path for devfs or a periph bus name.
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`

	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
	FrameSize    int           `yaml:"frame_size"`

	// Interval is the time between fix requests.
	Interval time.Duration `yaml:"interval"`

	Reset ResetConfig `yaml:"reset"`
}

type ResetConfig struct {
	Enable bool          `yaml:"enable"`
	GPIO   int           `yaml:"gpio"`
	Pulse  time.Duration `yaml:"pulse"`
	Settle time.Duration `yaml:"settle"`
}

type SimConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	RadiusM      float64       `yaml:"radius_m"`
	Period       time.Duration `yaml:"period"`
	BusyPolls    int           `yaml:"busy_polls"`
	NoFixEvery   int           `yaml:"no_fix_every"`
}

type NMEAUDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Retain   *bool  `yaml:"retain"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	g := &cfg.GPS
	g.Backend = strings.ToLower(strings.TrimSpace(g.Backend))
	if g.Backend == "" {
		g.Backend = BackendDevfs
	}
	switch g.Backend {
	case BackendDevfs:
		if g.Bus == "" {
			g.Bus = "/dev/i2c-1"
		}
	case BackendPeriph, BackendSim:
	default:
		return fmt.Errorf("gps.backend must be one of devfs, periph, sim (got %q)", g.Backend)
	}
	if g.Address == 0 {
		g.Address = 0x58
	}
	if g.Address > 0x7F {
		return fmt.Errorf("gps.address 0x%X is not a 7-bit address", g.Address)
	}
	if g.PollInterval <= 0 {
		g.PollInterval = 10 * time.Millisecond
	}
	if g.MaxWait <= 0 {
		g.MaxWait = 1 * time.Second
	}
	if g.MaxWait < g.PollInterval {
		return fmt.Errorf("gps.max_wait must be >= gps.poll_interval")
	}
	if g.FrameSize == 0 {
		g.FrameSize = 22
	}
	if g.FrameSize != 22 && g.FrameSize != 25 {
		return fmt.Errorf("gps.frame_size must be 22 or 25")
	}
	if g.Interval <= 0 {
		g.Interval = 1 * time.Second
	}

	if g.Reset.Enable {
		if g.Reset.GPIO <= 0 {
			return fmt.Errorf("gps.reset.gpio is required when gps.reset.enable is true")
		}
		if g.Reset.Pulse <= 0 {
			g.Reset.Pulse = 100 * time.Millisecond
		}
		if g.Reset.Settle <= 0 {
			g.Reset.Settle = 1 * time.Second
		}
	}

	// Simulator defaults (safe even if the sim backend is not selected).
	if cfg.Sim.CenterLatDeg == 0 && cfg.Sim.CenterLonDeg == 0 {
		cfg.Sim.CenterLatDeg = 35.6
		cfg.Sim.CenterLonDeg = 139.7
	}
	if cfg.Sim.RadiusM <= 0 {
		cfg.Sim.RadiusM = 500
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 120 * time.Second
	}
	if cfg.Sim.BusyPolls < 0 {
		cfg.Sim.BusyPolls = 0
	}

	if cfg.NMEAUDP.Enable && cfg.NMEAUDP.Dest == "" {
		return fmt.Errorf("nmea_udp.dest is required when nmea_udp.enable is true")
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			cfg.MQTT.Broker = "tcp://localhost:1883"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "i2cgps/fix"
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
		if cfg.MQTT.Retain == nil {
			v := true
			cfg.MQTT.Retain = &v
		}
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
