// Package plugins maps gateway type names from the configuration to
// constructors.
package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/factory"
	"github.com/kilianp07/pvcharge/core/model"
	coremqtt "github.com/kilianp07/pvcharge/core/mqtt"
	"github.com/kilianp07/pvcharge/infra/mqtt"
)

// Gateway is a control.Gateway that also produces power samples.
type Gateway interface {
	control.Gateway
	// Start connects to the host environment. Samples flow afterwards.
	Start(ctx context.Context) error
	Samples() <-chan model.Sample
}

// Deps carries the shared resources a gateway may need.
type Deps struct {
	Entities   control.Entities
	MQTT       coremqtt.Client
	MQTTConfig mqtt.Config
}

// GatewayFactory builds a gateway from its raw configuration.
type GatewayFactory func(ctx context.Context, conf map[string]any, deps Deps) (Gateway, error)

var Gateways = map[string]GatewayFactory{}

func RegisterGateway(name string, f GatewayFactory) { Gateways[name] = f }

// NewGateway instantiates the gateway selected by mc.Type.
func NewGateway(ctx context.Context, mc factory.ModuleConfig, deps Deps) (Gateway, error) {
	f, ok := Gateways[mc.Type]
	if !ok {
		names := make([]string, 0, len(Gateways))
		for n := range Gateways {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown gateway type %q (known: %v)", mc.Type, names)
	}
	return f(ctx, mc.Conf, deps)
}
