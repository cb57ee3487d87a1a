package testutils

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tably-dev/tably/client/hctx"
)

// BackupAndRestore points all of tably's local state (config, DB, log) at a
// temporary directory for the duration of a test.
func BackupAndRestore(t testing.TB) func() {
	t.Helper()
	restoreEnv := BackupAndRestoreEnv("TABLY_PATH")
	require.NoError(t, os.Setenv("TABLY_PATH", t.TempDir()))
	return restoreEnv
}

func BackupAndRestoreEnv(name string) func() {
	originalValue, existed := os.LookupEnv(name)
	return func() {
		if existed {
			os.Setenv(name, originalValue)
		} else {
			os.Unsetenv(name)
		}
	}
}

// MakeTestContext builds a full app context backed by the redirected TABLY_PATH.
// Call BackupAndRestore first.
func MakeTestContext(t testing.TB) context.Context {
	t.Helper()
	return hctx.MakeContext()
}
