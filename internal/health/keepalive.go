package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// KeepAlive requests url every interval and logs the outcome, so hosts that
// idle out quiet processes see regular traffic. It returns when ctx is done.
// A non-positive interval disables it.
func KeepAlive(ctx context.Context, url string, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		return nil
	}
	client := &http.Client{Timeout: 10 * time.Second}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			logger.Debug("keep-alive tick")
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("keep-alive check failed", slog.String("error", err.Error()))
				}
				continue
			}
			resp.Body.Close()
			logger.Info("keep-alive check", slog.Int("status", resp.StatusCode))
		}
	}
}
