package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const title = "har2grinder recorder"

// Recording summarises a finished recorder session.
type Recording struct {
	SessionID string
	Trace     string
	Script    string
	Pages     int
	Entries   int
	Compiled  int
}

// Message renders the notification body.
func (r Recording) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recording %s saved to %s (%d pages, %d entries).", r.SessionID, r.Trace, r.Pages, r.Entries)
	if r.Script != "" {
		fmt.Fprintf(&b, " Script %s has %d requests.", r.Script, r.Compiled)
	}
	return b.String()
}

// Send posts message to an ntfy-style endpoint as plain text.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	if endpoint == "" {
		return errors.New("notify: endpoint is empty")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", title)

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
