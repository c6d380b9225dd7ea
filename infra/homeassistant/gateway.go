package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/pvcharge/auth"
	"github.com/kilianp07/pvcharge/core/control"
	"github.com/kilianp07/pvcharge/core/model"
	"github.com/kilianp07/pvcharge/infra/logger"
)

// SampleBuffer is the capacity of the gateway's sample channel.
const SampleBuffer = 32

// Gateway follows entity states over the websocket API and drives the
// charger with REST service calls.
type Gateway struct {
	*control.StateCache

	cfg      Config
	entities control.Entities
	rest     *Client
	creds    *auth.Credentials
	dialer   *websocket.Dialer
	wsURL    string
	watched  map[string]bool
	log      logger.Logger
	now      func() time.Time

	samples chan model.Sample
}

var _ control.Gateway = (*Gateway)(nil)

// NewGateway validates cfg and prepares the REST client. No connection is
// made until Start.
func NewGateway(ctx context.Context, cfg Config, entities control.Entities) (*Gateway, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := entities.Validate(); err != nil {
		return nil, err
	}
	ids := []string{entities.PowerUsage, entities.ChargeCurrent, entities.CableConnected, entities.Battery, entities.ChargerSwitch}
	watched := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, _, ok := model.SplitEntityID(id); !ok {
			return nil, fmt.Errorf("invalid entity id %q", id)
		}
		watched[id] = true
	}
	creds, err := auth.NewCredentials(ctx, cfg.Auth)
	if err != nil {
		return nil, err
	}
	wsURL, err := websocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return &Gateway{
		StateCache: control.NewStateCache(entities),
		cfg:        cfg,
		entities:   entities,
		rest:       NewClient(cfg.URL, auth.NewHTTPClient(ctx, creds, timeout)),
		creds:      creds,
		dialer:     &websocket.Dialer{HandshakeTimeout: timeout},
		wsURL:      wsURL,
		watched:    watched,
		log:        logger.New("ha_gateway"),
		now:        time.Now,
		samples:    make(chan model.Sample, SampleBuffer),
	}, nil
}

// Samples returns the channel of power samples.
func (g *Gateway) Samples() <-chan model.Sample { return g.samples }

// Start loads the current entity states and follows state changes until ctx
// is canceled. The websocket is reopened with exponential backoff.
func (g *Gateway) Start(ctx context.Context) error {
	for id := range g.watched {
		st, err := g.rest.State(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			g.log.Warnf("initial state of %s: %v", id, err)
			continue
		}
		g.Set(id, st.State)
	}
	go g.run(ctx)
	return nil
}

func (g *Gateway) run(ctx context.Context) {
	base := time.Duration(g.cfg.ReconnectMS) * time.Millisecond
	backoff := base
	for {
		err := g.follow(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			backoff = base
		}
		g.log.Warnf("websocket closed: %v; reconnecting in %s", err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxReconnect {
			backoff = maxReconnect
		}
	}
}

// follow runs one websocket session. It returns nil if the session had
// delivered events before it ended.
func (g *Gateway) follow(ctx context.Context) error {
	token, err := g.creds.GetToken()
	if err != nil {
		return err
	}
	conn, err := subscribe(ctx, g.dialer, g.wsURL, token)
	if err != nil {
		return err
	}
	g.log.Infof("subscribed to state_changed on %s", g.wsURL)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	received := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if received {
				return nil
			}
			return err
		}
		if msg.Type != "event" || msg.Event == nil {
			continue
		}
		received = true
		g.handle(msg.Event)
	}
}

func (g *Gateway) handle(ev *wsEvent) {
	id := ev.Data.EntityID
	if ev.EventType != "state_changed" || !g.watched[id] {
		return
	}
	if ev.Data.NewState == nil {
		// entity removed
		g.Set(id, "unavailable")
		return
	}
	g.Set(id, ev.Data.NewState.State)
	if id != g.entities.PowerUsage {
		return
	}
	at := ev.Data.NewState.LastUpdated
	if at.IsZero() {
		at = g.now()
	}
	s := model.ParseSample(ev.Data.NewState.State, at)
	select {
	case g.samples <- s:
	default:
		g.log.Warnf("sample buffer full, dropping %s", ev.Data.NewState.State)
	}
}

// ChargerOn calls <domain>.turn_on on the charger switch.
func (g *Gateway) ChargerOn(ctx context.Context) error {
	return g.callEntity(ctx, g.entities.ChargerSwitch, "turn_on", nil)
}

// ChargerOff calls <domain>.turn_off on the charger switch.
func (g *Gateway) ChargerOff(ctx context.Context) error {
	return g.callEntity(ctx, g.entities.ChargerSwitch, "turn_off", nil)
}

// SetCurrent calls <domain>.set_value on the charge current entity.
func (g *Gateway) SetCurrent(ctx context.Context, amps int) error {
	return g.callEntity(ctx, g.entities.ChargeCurrent, "set_value", map[string]any{"value": amps})
}

func (g *Gateway) callEntity(ctx context.Context, id, service string, extra map[string]any) error {
	domain, _, ok := model.SplitEntityID(id)
	if !ok {
		return fmt.Errorf("invalid entity id %q", id)
	}
	data := map[string]any{"entity_id": id}
	for k, v := range extra {
		data[k] = v
	}
	return g.rest.CallService(ctx, domain, service, data)
}
