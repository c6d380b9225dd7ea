package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/pvcharge/api/status"
	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/decisionlog"
	"github.com/kilianp07/pvcharge/core/factory"
	"github.com/kilianp07/pvcharge/core/metrics"
	"github.com/kilianp07/pvcharge/infra/mqtt"
)

// EnvPrefix marks environment overrides. PV_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "PV_"

// Gateway types.
const (
	GatewayMQTT          = "mqtt"
	GatewayHomeAssistant = "homeassistant"
)

type Config struct {
	Controller  control.Config       `json:"controller"`
	Gateway     factory.ModuleConfig `json:"gateway"`
	MQTT        mqtt.Config          `json:"mqtt"`
	Metrics     metrics.Config       `json:"metrics"`
	DecisionLog decisionlog.Config   `json:"decision_log"`
	Sentry      SentryConfig         `json:"sentry"`
	API         status.Config        `json:"api"`
	Logging     LoggingConfig        `json:"logging"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Controller.ID == "" {
		c.Controller.ID = uuid.NewString()
	}
	c.Controller.SetDefaults()
	if c.Gateway.Type == "" {
		c.Gateway.Type = GatewayMQTT
	}
	if c.MQTT.Broker != "" || c.Gateway.Type == GatewayMQTT {
		c.MQTT.SetDefaults()
	}
	c.DecisionLog.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section. Entity references are checked by the
// gateways, so a config without them can still drive a simulation.
func (c *Config) Validate() error {
	if err := c.Controller.Validate(); err != nil {
		return err
	}
	switch c.Gateway.Type {
	case GatewayMQTT:
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	case GatewayHomeAssistant:
	default:
		return fmt.Errorf("unknown gateway type %q", c.Gateway.Type)
	}
	if err := c.DecisionLog.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// Load reads the configuration file, applies PV_ environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
