package lib

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tably-dev/tably/client/convert"
	"github.com/tably-dev/tably/shared/testutils"
)

func TestWriteOutputFile(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "report")

	outputPath, err := WriteOutputFile("| a |\n", stem, "markdown")
	require.NoError(t, err)
	require.Equal(t, stem+".md", outputPath)
	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "| a |\n", string(written))

	// No staging leftovers
	_, err = os.Stat(outputPath + ".tmp")
	require.True(t, os.IsNotExist(err))

	// The output directory is created if needed
	nestedStem := filepath.Join(dir, "nested", "deeper", "out")
	outputPath, err = WriteOutputFile("{}", nestedStem, "json")
	require.NoError(t, err)
	require.Equal(t, nestedStem+".json", outputPath)

	_, err = WriteOutputFile("x", stem, "docx")
	require.Error(t, err)
	if !errors.Is(err, convert.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got: %v", err)
	}
}

func TestGetServerHostname(t *testing.T) {
	defer testutils.BackupAndRestoreEnv("TABLY_SERVER")()
	require.NoError(t, os.Unsetenv("TABLY_SERVER"))
	require.Equal(t, DefaultServerHostname, GetServerHostname())
	require.NoError(t, os.Setenv("TABLY_SERVER", "http://localhost:8080"))
	require.Equal(t, "http://localhost:8080", GetServerHostname())
}

func TestTrackEvent(t *testing.T) {
	defer testutils.BackupAndRestore(t)()
	ctx := testutils.MakeTestContext(t)

	var received []analyticsEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/track", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Tably-Device-Id"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var event analyticsEvent
		require.NoError(t, json.Unmarshal(body, &event))
		received = append(received, event)
	}))
	defer server.Close()
	defer testutils.BackupAndRestoreEnv("TABLY_SERVER")()
	require.NoError(t, os.Setenv("TABLY_SERVER", server.URL))

	TrackEvent(ctx, "conversion_completed", map[string]any{"format": "csv"})
	require.Len(t, received, 1)
	require.Equal(t, "conversion_completed", received[0].Event)
	require.Equal(t, "csv", received[0].Properties["format"])
	require.NotEmpty(t, received[0].DeviceId)
	require.False(t, received[0].Authenticated)
}

func TestTrackEventSwallowsNetworkErrors(t *testing.T) {
	defer testutils.BackupAndRestore(t)()
	ctx := testutils.MakeTestContext(t)

	defer testutils.BackupAndRestoreEnv("TABLY_SIMULATE_NETWORK_ERROR")()
	require.NoError(t, os.Setenv("TABLY_SIMULATE_NETWORK_ERROR", "1"))
	// Must return without contacting any server
	TrackEvent(ctx, "conversion_completed", nil)

	require.NoError(t, os.Unsetenv("TABLY_SIMULATE_NETWORK_ERROR"))
	defer testutils.BackupAndRestoreEnv("TABLY_SERVER")()
	require.NoError(t, os.Setenv("TABLY_SERVER", "http://localhost:1"))
	// An unreachable sink must not panic or surface an error
	TrackEvent(ctx, "conversion_completed", nil)
}
