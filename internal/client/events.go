package client

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ChangedEvent is the server event that triggers a re-sync.
const ChangedEvent = "document.changed"

// watchEvents reads the server's event stream and sends a signal on out for
// every document.changed event. It reconnects after retry until ctx is done.
func watchEvents(ctx context.Context, url string, retry time.Duration, out chan<- struct{}, logger *slog.Logger) error {
	c := &http.Client{}
	for {
		if err := readEvents(ctx, c, url, out); err != nil && ctx.Err() == nil {
			logger.Debug("client: event stream closed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

func readEvents(ctx context.Context, c *http.Client, url string, out chan<- struct{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	var event string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event == ChangedEvent {
				select {
				case out <- struct{}{}:
				default: // a re-sync is already pending
				}
			}
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	return sc.Err()
}
