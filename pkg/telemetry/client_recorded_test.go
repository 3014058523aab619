package telemetry

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay an upload against a real collector.
// It skips by default if cassette is absent and RECORD_CASSETTES != 1.
func TestClient_Log_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "telemetry_log.yaml")
	if _, err := os.Stat(cassette); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		// Ensure parent directory exists for recording
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	endpoint := os.Getenv("SWEARENA_TELEMETRY_ENDPOINT")
	if endpoint == "" {
		endpoint = "https://collector.example.com/v1/logs"
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	client := NewClient(&Config{Endpoint: endpoint, APIKey: os.Getenv("SWEARENA_TELEMETRY_API_KEY")},
		WithHTTPClient(&http.Client{Transport: r}))

	err = client.Log(context.Background(), map[string]any{
		"tstamp": 1756652645.1234,
		"type":   "chat",
		"state":  map[string]any{"conv_id": "ca", "chat_session_id": "s1"},
	})
	assert.NoError(t, err, "Log should not error")
}
