package plugins

import (
	"context"
	"errors"

	"github.com/kilianp07/pvcharge/core/factory"
	"github.com/kilianp07/pvcharge/infra/homeassistant"
	"github.com/kilianp07/pvcharge/infra/mqtt"
)

func init() {
	RegisterGateway("mqtt", func(_ context.Context, _ map[string]any, deps Deps) (Gateway, error) {
		if deps.MQTT == nil {
			return nil, errors.New("mqtt gateway requires mqtt.broker")
		}
		return mqtt.NewGateway(deps.MQTT, deps.MQTTConfig, deps.Entities)
	})
	RegisterGateway("homeassistant", func(ctx context.Context, conf map[string]any, deps Deps) (Gateway, error) {
		var hc homeassistant.Config
		if err := factory.Decode(conf, &hc); err != nil {
			return nil, err
		}
		return homeassistant.NewGateway(ctx, hc, deps.Entities)
	})
}
