package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tably-dev/tably/client/convert"
	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/client/quota"
)

var (
	Version   string = "Unknown"
	GitCommit string = "Unknown"
)

func CheckFatalError(err error) {
	if err != nil {
		_, filename, line, _ := runtime.Caller(1)
		log.Fatalf("tably v0.%s fatal error at %s:%d: %v", Version, filename, line, err)
	}
}

// NewQuotaTracker wires the tracker to the local DB and log file.
func NewQuotaTracker(ctx context.Context) *quota.Tracker {
	tracker := quota.NewTracker(quota.NewDbStore(hctx.GetDb(ctx)), quota.DefaultDailyLimit)
	tracker.Logger = hctx.GetLogger()
	return tracker
}

// WriteOutputFile is the download sink: it turns converted content plus a
// format id into a file with the right extension. The content is staged in a
// temp file and renamed, so a failed conversion can never leave a partial
// output file behind.
func WriteOutputFile(content string, stem string, formatID string) (string, error) {
	format, ok := convert.Lookup(formatID)
	if !ok {
		return "", fmt.Errorf("%w: %q", convert.ErrUnsupportedFormat, formatID)
	}
	outputPath := stem + "." + format.Extension
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	stagedPath := outputPath + ".tmp"
	if err := os.WriteFile(stagedPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(stagedPath, outputPath); err != nil {
		return "", fmt.Errorf("failed to finalize output file: %w", err)
	}
	return outputPath, nil
}
