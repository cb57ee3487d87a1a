package hctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tably-dev/tably/client/data"
	"github.com/tably-dev/tably/client/quota"

	// Needed to use sqlite without CGO
	"github.com/glebarez/sqlite"
)

var (
	tablyLogger   *logrus.Logger
	getLoggerOnce sync.Once
)

func GetLogger() *logrus.Logger {
	getLoggerOnce.Do(func() {
		err := MakeTablyDir()
		if err != nil {
			panic(err)
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   path.Join(data.GetTablyPath(), data.LOG_PATH),
			MaxSize:    1, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
		}

		logFormatter := new(logrus.TextFormatter)
		logFormatter.TimestampFormat = time.RFC3339
		logFormatter.FullTimestamp = true

		tablyLogger = logrus.New()
		tablyLogger.SetFormatter(logFormatter)
		tablyLogger.SetLevel(logrus.InfoLevel)
		tablyLogger.SetOutput(lumberjackLogger)
	})
	return tablyLogger
}

func MakeTablyDir() error {
	err := os.MkdirAll(data.GetTablyPath(), 0o744)
	if err != nil {
		return fmt.Errorf("failed to create ~/.tably dir: %w", err)
	}
	return nil
}

func OpenLocalSqliteDb() (*gorm.DB, error) {
	err := MakeTablyDir()
	if err != nil {
		return nil, err
	}
	newLogger := logger.New(
		GetLogger().WithField("fromSQL", true),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  false,
		},
	)
	dbFilePath := path.Join(data.GetTablyPath(), data.DB_PATH)
	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL", dbFilePath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true, Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the DB: %w", err)
	}
	tx, err := db.DB()
	if err != nil {
		return nil, err
	}
	err = tx.Ping()
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(&quota.UsageRecord{})
	db.Exec("PRAGMA journal_mode = WAL")
	return db, nil
}

type tablyContextKey string

func MakeContext() context.Context {
	ctx := context.Background()
	config, err := GetConfig()
	if err != nil {
		panic(fmt.Errorf("failed to retrieve config: %w", err))
	}
	ctx = context.WithValue(ctx, tablyContextKey("config"), config)
	db, err := OpenLocalSqliteDb()
	if err != nil {
		panic(fmt.Errorf("failed to open local DB: %w", err))
	}
	ctx = context.WithValue(ctx, tablyContextKey("db"), db)
	homedir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("failed to get homedir: %w", err))
	}
	ctx = context.WithValue(ctx, tablyContextKey("homedir"), homedir)
	return ctx
}

func GetConf(ctx context.Context) ClientConfig {
	v := ctx.Value(tablyContextKey("config"))
	if v != nil {
		return v.(ClientConfig)
	}
	panic(fmt.Errorf("failed to find config in ctx"))
}

func GetDb(ctx context.Context) *gorm.DB {
	v := ctx.Value(tablyContextKey("db"))
	if v != nil {
		return v.(*gorm.DB)
	}
	panic(fmt.Errorf("failed to find db in ctx"))
}

func GetHome(ctx context.Context) string {
	v := ctx.Value(tablyContextKey("homedir"))
	if v != nil {
		return v.(string)
	}
	panic(fmt.Errorf("failed to find homedir in ctx"))
}

type ClientConfig struct {
	// The API key proving there is an authenticated principal. Empty means anonymous.
	ApiKey string `json:"api_key"`
	// A random ID identifying this install in analytics events
	DeviceId string `json:"device_id"`
	// The format used by `tably convert` when --to is omitted
	DefaultFormat string `json:"default_format"`
	// Whether to skip sending analytics events
	DisableAnalytics bool `json:"disable_analytics"`
	// The format string applied by --parse-dates when normalizing timestamps
	TimestampFormat string `json:"timestamp_format"`
}

func (c ClientConfig) IsAuthenticated() bool {
	return c.ApiKey != ""
}

func GetConfigContents() ([]byte, error) {
	dat, err := os.ReadFile(path.Join(data.GetTablyPath(), data.CONFIG_PATH))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return dat, nil
}

func GetConfig() (ClientConfig, error) {
	if err := InitConfig(); err != nil {
		return ClientConfig{}, err
	}
	dat, err := GetConfigContents()
	if err != nil {
		return ClientConfig{}, err
	}
	var config ClientConfig
	err = json.Unmarshal(dat, &config)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.DefaultFormat == "" {
		config.DefaultFormat = "json"
	}
	if config.TimestampFormat == "" {
		config.TimestampFormat = time.RFC3339
	}
	return config, nil
}

func SetConfig(config ClientConfig) error {
	serializedConfig, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	err = MakeTablyDir()
	if err != nil {
		return err
	}
	configPath := path.Join(data.GetTablyPath(), data.CONFIG_PATH)
	stagedConfigPath := configPath + ".tmp"
	err = os.WriteFile(stagedConfigPath, serializedConfig, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	err = os.Rename(stagedConfigPath, configPath)
	if err != nil {
		return fmt.Errorf("failed to replace config file with the updated version: %w", err)
	}
	return nil
}

// InitConfig creates the config file on first run, seeding a fresh device ID.
func InitConfig() error {
	_, err := os.Stat(path.Join(data.GetTablyPath(), data.CONFIG_PATH))
	if errors.Is(err, os.ErrNotExist) {
		return SetConfig(ClientConfig{DeviceId: uuid.Must(uuid.NewRandom()).String()})
	}
	return err
}
