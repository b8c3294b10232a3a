package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// Subscribe connects to the notification stream at url and calls fn for
// every message until ctx ends or the server closes the connection. A
// cancelled ctx returns nil. Frames that are not a Message are logged at
// debug level and skipped; a nil logger uses slog.Default.
func Subscribe(ctx context.Context, url, token string, logger *slog.Logger, fn func(Message)) error {
	if logger == nil {
		logger = slog.Default()
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Token "+token)
	}

	conn, resp, err := ws.Dial(ctx, url, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ws.CloseStatus(err) == ws.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("skip undecodable frame", "url", url, "bytes", len(data), "error", err)
			continue
		}
		fn(msg)
	}
}
