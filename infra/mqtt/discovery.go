package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/events"
	coremqtt "github.com/kilianp07/pvcharge/core/mqtt"
	"github.com/kilianp07/pvcharge/infra/logger"
	"github.com/kilianp07/pvcharge/internal/eventbus"
)

// Availability payloads.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// DeviceName is the Home Assistant device the entities are grouped under.
const DeviceName = "Intelligent Car Charging"

// HADevice represents the device information for Home Assistant.
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// HADiscoveryConfig is the Home Assistant MQTT discovery payload.
type HADiscoveryConfig struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	PayloadOn         string   `json:"payload_on,omitempty"`
	PayloadOff        string   `json:"payload_off,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Icon              string   `json:"icon,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	Device            HADevice `json:"device"`
}

type haEntity struct {
	component string
	object    string
	name      string
	template  string
	class     string
	unit      string
	stateCls  string
	icon      string
	command   bool
}

var haEntities = []haEntity{
	{component: "sensor", object: "solar_efficiency", name: "Solar efficiency", template: "{{ value_json.efficiency }}", unit: "%", stateCls: "measurement", icon: "mdi:brightness-percent"},
	{component: "sensor", object: "smoothed_power", name: "Smoothed power", template: "{{ value_json.smoothed_power }}", class: "power", unit: "W", stateCls: "measurement"},
	{component: "binary_sensor", object: "charging", name: "Charging", template: "{{ 'ON' if value_json.charging else 'OFF' }}", class: "battery_charging"},
	{component: "switch", object: "charger_switch", name: "Intelligent charging", template: "{{ 'ON' if value_json.enabled else 'OFF' }}", icon: "mdi:ev-station", command: true},
}

// State is the retained JSON document the discovered entities read from.
type State struct {
	SmoothedPower float64 `json:"smoothed_power"`
	Charging      bool    `json:"charging"`
	Efficiency    float64 `json:"efficiency"`
	Enabled       bool    `json:"enabled"`
}

// StateSource provides the values published in State.
type StateSource interface {
	Status() control.Status
	Efficiency() float64
}

// Discovery announces the controller to Home Assistant and keeps its state
// topic current.
type Discovery struct {
	cli          coremqtt.Client
	cfg          Config
	controllerID string
	log          logger.Logger
}

// NewDiscovery creates a discovery publisher for the controller.
func NewDiscovery(cli coremqtt.Client, cfg Config, controllerID string) *Discovery {
	cfg.SetDefaults()
	return &Discovery{cli: cli, cfg: cfg, controllerID: controllerID, log: logger.New("ha_discovery")}
}

// StateTopic is the retained state document topic.
func (d *Discovery) StateTopic() string { return d.cfg.BaseTopic + "/state" }

// SwitchCommandTopic receives ON/OFF for the intelligent charging switch.
func (d *Discovery) SwitchCommandTopic() string { return d.cfg.BaseTopic + "/charger_switch/set" }

func (d *Discovery) configTopic(e haEntity) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", d.cfg.DiscoveryPrefix, e.component, d.controllerID, e.object)
}

func (d *Discovery) device() HADevice {
	return HADevice{
		Identifiers:  []string{"pvcharge_" + d.controllerID},
		Name:         DeviceName,
		Model:        "Solar surplus controller",
		Manufacturer: "pvcharge",
	}
}

// Configs returns the discovery payloads keyed by topic.
func (d *Discovery) Configs() map[string]HADiscoveryConfig {
	out := make(map[string]HADiscoveryConfig, len(haEntities))
	dev := d.device()
	for _, e := range haEntities {
		c := HADiscoveryConfig{
			Name:              e.name,
			UniqueID:          fmt.Sprintf("%s_%s", d.controllerID, e.object),
			StateTopic:        d.StateTopic(),
			ValueTemplate:     e.template,
			DeviceClass:       e.class,
			UnitOfMeasurement: e.unit,
			StateClass:        e.stateCls,
			Icon:              e.icon,
			AvailabilityTopic: d.cfg.AvailabilityTopic(),
			Device:            dev,
		}
		if e.component == "binary_sensor" || e.command {
			c.PayloadOn, c.PayloadOff = "ON", "OFF"
		}
		if e.command {
			c.CommandTopic = d.SwitchCommandTopic()
		}
		out[d.configTopic(e)] = c
	}
	return out
}

// Announce publishes every discovery config and marks the controller online.
func (d *Discovery) Announce(ctx context.Context) error {
	for topic, c := range d.Configs() {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal discovery config: %w", err)
		}
		if err := d.cli.Publish(ctx, topic, "discovery", true, payload); err != nil {
			return err
		}
		d.log.Debugf("published discovery config %s", topic)
	}
	if err := d.cli.Publish(ctx, d.cfg.AvailabilityTopic(), "discovery", true, []byte(PayloadOnline)); err != nil {
		return err
	}
	d.log.Infof("announced %d entities to Home Assistant", len(haEntities))
	return nil
}

// PublishState writes the retained state document.
func (d *Discovery) PublishState(ctx context.Context, st State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return d.cli.Publish(ctx, d.StateTopic(), "state", true, payload)
}

// OnSwitch subscribes to the switch command topic and calls fn with the
// requested value. Unknown payloads are ignored.
func (d *Discovery) OnSwitch(fn func(enabled bool)) error {
	return d.cli.Subscribe(d.SwitchCommandTopic(), "command", func(_ string, payload []byte) {
		switch strings.ToUpper(strings.TrimSpace(string(payload))) {
		case "ON":
			fn(true)
		case "OFF":
			fn(false)
		default:
			d.log.Warnf("ignoring switch payload %q", payload)
		}
	})
}

// StartStatePublisher republishes the state document after every control
// event. It stops when the context is canceled or the bus is closed.
func (d *Discovery) StartStatePublisher(ctx context.Context, bus *eventbus.TypedBus[events.Event], src StateSource) {
	if bus == nil || src == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub:
				if !ok {
					return
				}
				st := src.Status()
				pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := d.PublishState(pctx, State{
					SmoothedPower: st.SmoothedPower,
					Charging:      st.Charging,
					Efficiency:    src.Efficiency(),
					Enabled:       st.Enabled,
				})
				cancel()
				if err != nil {
					d.log.Warnf("publish state: %v", err)
				}
			}
		}
	}()
}
