package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/pvcharge/core/control"
	coremqtt "github.com/kilianp07/pvcharge/core/mqtt"
	"github.com/kilianp07/pvcharge/core/model"
	"github.com/kilianp07/pvcharge/infra/logger"
)

// SampleBuffer is the capacity of the gateway's sample channel.
const SampleBuffer = 32

// Gateway reads Home Assistant entities from mqtt_statestream topics and
// sends charger commands on the command prefix.
type Gateway struct {
	*control.StateCache

	cli      coremqtt.Client
	cfg      Config
	entities control.Entities
	log      logger.Logger
	now      func() time.Time
	topics   map[string]string

	samples chan model.Sample
}

var _ control.Gateway = (*Gateway)(nil)

// NewGateway creates a statestream gateway for the given entities. Start must
// be called before samples flow.
func NewGateway(cli coremqtt.Client, cfg Config, entities control.Entities) (*Gateway, error) {
	if cli == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	if err := entities.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	g := &Gateway{
		StateCache: control.NewStateCache(entities),
		cli:        cli,
		cfg:        cfg,
		entities:   entities,
		log:        logger.New("mqtt_gateway"),
		now:        time.Now,
		topics:     make(map[string]string),
		samples:    make(chan model.Sample, SampleBuffer),
	}
	for _, id := range []string{entities.PowerUsage, entities.ChargeCurrent, entities.CableConnected, entities.Battery, entities.ChargerSwitch} {
		topic, err := StateTopic(cfg.StatePrefix, id)
		if err != nil {
			return nil, err
		}
		g.topics[topic] = id
	}
	return g, nil
}

// StateTopic returns the statestream topic carrying the state of entity id.
func StateTopic(prefix, id string) (string, error) {
	domain, object, ok := model.SplitEntityID(id)
	if !ok {
		return "", fmt.Errorf("invalid entity id %q", id)
	}
	return fmt.Sprintf("%s/%s/%s/state", strings.TrimSuffix(prefix, "/"), domain, object), nil
}

// CommandTopic returns the topic charger commands for entity id are sent to.
func CommandTopic(prefix, id string) (string, error) {
	domain, object, ok := model.SplitEntityID(id)
	if !ok {
		return "", fmt.Errorf("invalid entity id %q", id)
	}
	return fmt.Sprintf("%s/%s/%s/set", strings.TrimSuffix(prefix, "/"), domain, object), nil
}

// Start subscribes to the state topics of every entity.
func (g *Gateway) Start(_ context.Context) error {
	for topic := range g.topics {
		if err := g.cli.Subscribe(topic, "state", g.onState); err != nil {
			return err
		}
	}
	g.log.Infof("listening on %d statestream topics under %s", len(g.topics), g.cfg.StatePrefix)
	return nil
}

// Samples returns the channel of power samples.
func (g *Gateway) Samples() <-chan model.Sample { return g.samples }

func (g *Gateway) onState(topic string, payload []byte) {
	id, ok := g.topics[topic]
	if !ok {
		return
	}
	// statestream publishes JSON-encoded strings for some attributes
	raw := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	g.Set(id, raw)
	if id != g.entities.PowerUsage {
		return
	}
	s := model.ParseSample(raw, g.now())
	select {
	case g.samples <- s:
	default:
		g.log.Warnf("sample buffer full, dropping %s", raw)
	}
}

// ChargerOn publishes ON to the charger switch command topic.
func (g *Gateway) ChargerOn(ctx context.Context) error {
	return g.command(ctx, g.entities.ChargerSwitch, "ON")
}

// ChargerOff publishes OFF to the charger switch command topic.
func (g *Gateway) ChargerOff(ctx context.Context) error {
	return g.command(ctx, g.entities.ChargerSwitch, "OFF")
}

// SetCurrent publishes the requested amps to the charge current command topic.
func (g *Gateway) SetCurrent(ctx context.Context, amps int) error {
	return g.command(ctx, g.entities.ChargeCurrent, strconv.Itoa(amps))
}

func (g *Gateway) command(ctx context.Context, id, payload string) error {
	topic, err := CommandTopic(g.cfg.CommandPrefix, id)
	if err != nil {
		return err
	}
	return g.cli.Publish(ctx, topic, "command", false, []byte(payload))
}
