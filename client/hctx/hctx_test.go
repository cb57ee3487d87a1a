package hctx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tably-dev/tably/client/hctx"
	"github.com/tably-dev/tably/shared/testutils"
)

func TestConfigFirstRunAndRoundTrip(t *testing.T) {
	defer testutils.BackupAndRestore(t)()

	// First read creates the config with a fresh device ID and defaults
	config, err := hctx.GetConfig()
	require.NoError(t, err)
	require.NotEmpty(t, config.DeviceId)
	require.Equal(t, "json", config.DefaultFormat)
	require.Equal(t, time.RFC3339, config.TimestampFormat)
	require.False(t, config.IsAuthenticated())

	config.ApiKey = "test-api-key-1234"
	config.DefaultFormat = "markdown"
	require.NoError(t, hctx.SetConfig(config))

	reread, err := hctx.GetConfig()
	require.NoError(t, err)
	require.Equal(t, config.DeviceId, reread.DeviceId, "the device ID must survive rewrites")
	require.Equal(t, "test-api-key-1234", reread.ApiKey)
	require.Equal(t, "markdown", reread.DefaultFormat)
	require.True(t, reread.IsAuthenticated())
}

func TestMakeContext(t *testing.T) {
	defer testutils.BackupAndRestore(t)()
	ctx := hctx.MakeContext()

	config := hctx.GetConf(ctx)
	require.NotEmpty(t, config.DeviceId)

	db := hctx.GetDb(ctx)
	require.NotNil(t, db)
	var count int64
	require.NoError(t, db.Table("usage_records").Count(&count).Error)

	require.NotEmpty(t, hctx.GetHome(ctx))
}
