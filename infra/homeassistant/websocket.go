package homeassistant

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	ID          int      `json:"id,omitempty"`
	Type        string   `json:"type"`
	AccessToken string   `json:"access_token,omitempty"`
	EventType   string   `json:"event_type,omitempty"`
	Success     *bool    `json:"success,omitempty"`
	Event       *wsEvent `json:"event,omitempty"`
	Error       *wsError `json:"error,omitempty"`
	Message     string   `json:"message,omitempty"`
}

type wsEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string       `json:"entity_id"`
		NewState *EntityState `json:"new_state"`
	} `json:"data"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// websocketURL derives ws(s)://host/api/websocket from the REST base URL.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// subscribe opens the websocket, authenticates and subscribes to
// state_changed. The returned connection delivers event messages.
func subscribe(ctx context.Context, dialer *websocket.Dialer, endpoint, token string) (*websocket.Conn, error) {
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	fail := func(err error) (*websocket.Conn, error) {
		_ = conn.Close()
		return nil, err
	}

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return fail(fmt.Errorf("read auth_required: %w", err))
	}
	if msg.Type != "auth_required" {
		return fail(fmt.Errorf("unexpected greeting %q", msg.Type))
	}
	if err := conn.WriteJSON(wsMessage{Type: "auth", AccessToken: token}); err != nil {
		return fail(fmt.Errorf("send auth: %w", err))
	}
	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		return fail(fmt.Errorf("read auth result: %w", err))
	}
	if msg.Type != "auth_ok" {
		return fail(fmt.Errorf("authentication failed: %s %s", msg.Type, msg.Message))
	}

	if err := conn.WriteJSON(wsMessage{ID: 1, Type: "subscribe_events", EventType: "state_changed"}); err != nil {
		return fail(fmt.Errorf("send subscribe: %w", err))
	}
	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		return fail(fmt.Errorf("read subscribe result: %w", err))
	}
	if msg.Type != "result" || msg.Success == nil || !*msg.Success {
		detail := ""
		if msg.Error != nil {
			detail = msg.Error.Message
		}
		return fail(fmt.Errorf("subscribe_events rejected: %s", detail))
	}
	return conn, nil
}
