package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pvcharge/auth"
	"github.com/kilianp07/pvcharge/core/control"
)

var testEntities = control.Entities{
	Battery:        "sensor.car_battery",
	ChargeCurrent:  "number.charger_current",
	PowerUsage:     "sensor.power_usage",
	CableConnected: "binary_sensor.car_cable",
	ChargerSwitch:  "switch.charger",
}

type serviceCall struct {
	path string
	data map[string]any
	auth string
}

// fakeHA serves the parts of the Home Assistant API the gateway uses.
type fakeHA struct {
	t      *testing.T
	token  string
	states map[string]string
	events chan map[string]any

	mu    sync.Mutex
	calls []serviceCall
	conns int
}

func newFakeHA(t *testing.T) (*fakeHA, *httptest.Server) {
	f := &fakeHA{
		t:     t,
		token: "llat",
		states: map[string]string{
			"sensor.car_battery":      "40",
			"number.charger_current":  "6",
			"sensor.power_usage":      "-300",
			"binary_sensor.car_cable": "on",
			"switch.charger":          "off",
		},
		events: make(chan map[string]any, 8),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/states/", f.state)
	mux.HandleFunc("/api/services/", f.service)
	mux.HandleFunc("/api/websocket", f.websocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeHA) state(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/states/")
	st, ok := f.states[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(EntityState{EntityID: id, State: st})
}

func (f *fakeHA) service(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	_ = json.NewDecoder(r.Body).Decode(&data)
	f.mu.Lock()
	f.calls = append(f.calls, serviceCall{path: r.URL.Path, data: data, auth: r.Header.Get("Authorization")})
	f.mu.Unlock()
	_, _ = w.Write([]byte("[]"))
}

func (f *fakeHA) websocket(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	f.mu.Lock()
	f.conns++
	f.mu.Unlock()

	_ = conn.WriteJSON(map[string]any{"type": "auth_required"})
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		return
	}
	if msg["access_token"] != f.token {
		_ = conn.WriteJSON(map[string]any{"type": "auth_invalid", "message": "bad token"})
		return
	}
	_ = conn.WriteJSON(map[string]any{"type": "auth_ok"})
	if err := conn.ReadJSON(&msg); err != nil {
		return
	}
	if msg["type"] != "subscribe_events" || msg["event_type"] != "state_changed" {
		return
	}
	_ = conn.WriteJSON(map[string]any{"id": msg["id"], "type": "result", "success": true})
	for ev := range f.events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func (f *fakeHA) stateChanged(id, state string) {
	f.events <- map[string]any{
		"id":   1,
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"data": map[string]any{
				"entity_id": id,
				"new_state": map[string]any{
					"entity_id":    id,
					"state":        state,
					"last_updated": "2024-06-01T12:00:00Z",
				},
			},
		},
	}
}

func (f *fakeHA) serviceCalls() []serviceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]serviceCall(nil), f.calls...)
}

func startGateway(t *testing.T, srv *httptest.Server) *Gateway {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	gw, err := NewGateway(ctx, Config{URL: srv.URL, Auth: auth.Conf{Token: "llat"}, ReconnectMS: 10}, testEntities)
	require.NoError(t, err)
	require.NoError(t, gw.Start(ctx))
	return gw
}

func TestGatewayInitialStates(t *testing.T) {
	_, srv := newFakeHA(t)
	gw := startGateway(t, srv)

	amps, ok := gw.CurrentSetpoint()
	assert.True(t, ok)
	assert.Equal(t, 6.0, amps)
	assert.True(t, gw.CableConnected())
	lvl, ok := gw.BatteryLevel()
	assert.True(t, ok)
	assert.Equal(t, 40.0, lvl)
}

func TestGatewayFollowsStateChanges(t *testing.T) {
	ha, srv := newFakeHA(t)
	gw := startGateway(t, srv)

	ha.stateChanged("sensor.power_usage", "-1250.5")
	ha.stateChanged("binary_sensor.car_cable", "off")
	ha.stateChanged("sensor.unrelated", "1")

	select {
	case s := <-gw.Samples():
		w, ok := s.Watts()
		require.True(t, ok)
		assert.Equal(t, -1250.5, w)
		assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), s.At.UTC())
	case <-time.After(2 * time.Second):
		t.Fatal("no sample received")
	}
	require.Eventually(t, func() bool { return !gw.CableConnected() }, time.Second, 10*time.Millisecond)
	_, ok := gw.Get("sensor.unrelated")
	assert.False(t, ok)
}

func TestGatewayServiceCalls(t *testing.T) {
	ha, srv := newFakeHA(t)
	gw := startGateway(t, srv)
	ctx := context.Background()

	require.NoError(t, gw.ChargerOn(ctx))
	require.NoError(t, gw.SetCurrent(ctx, 8))
	require.NoError(t, gw.ChargerOff(ctx))

	calls := ha.serviceCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "/api/services/switch/turn_on", calls[0].path)
	assert.Equal(t, "switch.charger", calls[0].data["entity_id"])
	assert.Equal(t, "Bearer llat", calls[0].auth)
	assert.Equal(t, "/api/services/number/set_value", calls[1].path)
	assert.Equal(t, 8.0, calls[1].data["value"])
	assert.Equal(t, "/api/services/switch/turn_off", calls[2].path)
}

func TestGatewayUnknownEntity(t *testing.T) {
	ha, srv := newFakeHA(t)
	delete(ha.states, "sensor.car_battery")
	gw, err := NewGateway(context.Background(), Config{URL: srv.URL, Auth: auth.Conf{Token: "llat"}}, testEntities)
	require.NoError(t, err)
	err = gw.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGatewayReconnects(t *testing.T) {
	ha, srv := newFakeHA(t)
	gw := startGateway(t, srv)
	ha.stateChanged("sensor.power_usage", "100")
	<-gw.Samples()

	// closing the event stream ends the session
	close(ha.events)
	require.Eventually(t, func() bool {
		ha.mu.Lock()
		defer ha.mu.Unlock()
		return ha.conns >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{URL: "http://ha:8123", Auth: auth.Conf{Token: "x"}}, true},
		{"missing url", Config{Auth: auth.Conf{Token: "x"}}, false},
		{"bad scheme", Config{URL: "ftp://ha", Auth: auth.Conf{Token: "x"}}, false},
		{"missing auth", Config{URL: "http://ha:8123"}, false},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err == nil) != c.ok {
			t.Errorf("%s: err = %v", c.name, err)
		}
	}
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://ha.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "wss://ha.example.com/api/websocket", u)
	u, err = websocketURL("http://10.0.0.2:8123")
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.2:8123/api/websocket", u)
}
