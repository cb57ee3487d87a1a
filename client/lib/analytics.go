package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/tably-dev/tably/client/hctx"
)

const DefaultServerHostname = "https://api.tably.dev"

func GetServerHostname() string {
	if server := os.Getenv("TABLY_SERVER"); server != "" {
		return server
	}
	return DefaultServerHostname
}

var analyticsHttpClient = &http.Client{Timeout: 3 * time.Second}

type analyticsEvent struct {
	Event         string         `json:"event"`
	Properties    map[string]any `json:"properties,omitempty"`
	DeviceId      string         `json:"device_id"`
	Authenticated bool           `json:"authenticated"`
	ClientVersion string         `json:"client_version"`
}

// TrackEvent is the fire-and-forget analytics sink. Failures are logged and
// swallowed: an unreachable or absent sink must never affect conversions.
func TrackEvent(ctx context.Context, event string, properties map[string]any) {
	config := hctx.GetConf(ctx)
	if config.DisableAnalytics || os.Getenv("TABLY_SIMULATE_NETWORK_ERROR") != "" {
		return
	}
	body, err := json.Marshal(analyticsEvent{
		Event:         event,
		Properties:    properties,
		DeviceId:      config.DeviceId,
		Authenticated: config.IsAuthenticated(),
		ClientVersion: "v0." + Version,
	})
	if err != nil {
		hctx.GetLogger().Warnf("failed to serialize analytics event %q: %v", event, err)
		return
	}
	req, err := http.NewRequest("POST", GetServerHostname()+"/api/v1/track", bytes.NewBuffer(body))
	if err != nil {
		hctx.GetLogger().Warnf("failed to create analytics request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tably-Version", "v0."+Version)
	req.Header.Set("X-Tably-Device-Id", config.DeviceId)
	resp, err := analyticsHttpClient.Do(req)
	if err != nil {
		hctx.GetLogger().Infof("failed to POST analytics event %q: %v", event, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		hctx.GetLogger().Infof("analytics event %q rejected: status_code=%d", event, resp.StatusCode)
	}
}
