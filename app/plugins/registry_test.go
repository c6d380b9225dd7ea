package plugins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/factory"
	"github.com/kilianp07/pvcharge/infra/homeassistant"
)

var entities = control.Entities{
	Battery:        "sensor.car_battery",
	ChargeCurrent:  "number.charger_current",
	PowerUsage:     "sensor.power_usage",
	CableConnected: "binary_sensor.car_cable",
	ChargerSwitch:  "switch.charger",
}

func TestBuiltinGatewaysRegistered(t *testing.T) {
	for _, name := range []string{"mqtt", "homeassistant"} {
		_, ok := Gateways[name]
		assert.True(t, ok, name)
	}
}

func TestNewGatewayUnknownType(t *testing.T) {
	_, err := NewGateway(context.Background(), factory.ModuleConfig{Type: "zigbee"}, Deps{Entities: entities})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "homeassistant")
}

func TestMQTTGatewayNeedsClient(t *testing.T) {
	_, err := NewGateway(context.Background(), factory.ModuleConfig{Type: "mqtt"}, Deps{Entities: entities})
	assert.Error(t, err)
}

func TestHomeAssistantGatewayDecodesConf(t *testing.T) {
	gw, err := NewGateway(context.Background(), factory.ModuleConfig{
		Type: "homeassistant",
		Conf: map[string]any{
			"url":        "http://ha.local:8123",
			"timeout_ms": "2500",
			"auth":       map[string]any{"token": "llat"},
		},
	}, Deps{Entities: entities})
	require.NoError(t, err)
	assert.IsType(t, &homeassistant.Gateway{}, gw)

	_, err = NewGateway(context.Background(), factory.ModuleConfig{
		Type: "homeassistant",
		Conf: map[string]any{"url": "http://ha.local:8123"},
	}, Deps{Entities: entities})
	assert.Error(t, err)
}
