package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Rhujeraphorn/web-evana/internal/events"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsURL turns an http(s) base URL into the events websocket address.
func wsURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path += "/api/routes/events/ws"
	return u.String(), nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if serverURL == "" {
		return errors.New("watch needs --server")
	}
	target, err := wsURL(serverURL)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer func() { _ = c.Close() }()
	go func() {
		<-ctx.Done()
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.Close()
	}()
	return watch(ctx, c, watchSource, cmd.OutOrStdout())
}

// watch runs the subscribe handshake on c and prints one line per event
// until the server completes the subscription or ctx ends.
func watch(ctx context.Context, c *websocket.Conn, source string, out io.Writer) error {
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		return err
	}
	pl, _ := json.Marshal(map[string]string{"source": source})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		return err
	}
	for {
		var m wsMessage
		if err := c.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch m.Type {
		case "ping":
			if err := c.WriteJSON(wsMessage{Type: "pong"}); err != nil {
				return err
			}
		case "next":
			var evt events.Event
			if err := json.Unmarshal(m.Payload, &evt); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(out, "%s %s\n", evt.Type, data)
		case "error":
			return fmt.Errorf("subscribe rejected: %s", m.Payload)
		case "complete":
			return nil
		}
	}
}
