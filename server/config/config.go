// Package config loads the relay server configuration from defaults, an
// optional YAML file, CHATRELAY_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	HTTPAddrKey               = "http_addr"
	GRPCAddrKey               = "grpc_addr"
	StoreDriverKey            = "store.driver"
	StoreSQLitePathKey        = "store.sqlite_path"
	StorePostgresDSNKey       = "store.postgres_dsn"
	HistoryLimitKey           = "history.limit"
	HistoryTimeoutKey         = "history.timeout"
	ArchiveQueueSizeKey       = "archive.queue_size"
	ArchiveWriteTimeoutKey    = "archive.write_timeout"
	TransportSendBufferKey    = "transport.send_buffer"
	TransportPingIntervalKey  = "transport.ping_interval"
	TransportReadLimitKey     = "transport.read_limit"
	TransportAllowedOriginKey = "transport.allowed_origins"
	LogEnvKey                 = "log.env"
	LogBackendKey             = "log.backend"
	LogLevelKey               = "log.level"
	LogAddSourceKey           = "log.add_source"
	LogServiceKey             = "log.service"
	LogVersionKey             = "log.version"
)

const envPrefix = "CHATRELAY"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Store struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

type History struct {
	Limit   int
	Timeout time.Duration
}

type Archive struct {
	QueueSize    int
	WriteTimeout time.Duration
}

type Transport struct {
	SendBuffer     int
	PingInterval   time.Duration
	ReadLimit      int64
	AllowedOrigins []string
}

type Log struct {
	Env       string
	Backend   string
	Level     string
	AddSource bool
	Service   string
	Version   string
}

type Config struct {
	HTTPAddr  string
	GRPCAddr  string
	Store     Store
	History   History
	Archive   Archive
	Transport Transport
	Log       Log
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(HTTPAddrKey, ":3000")
	v.SetDefault(GRPCAddrKey, ":50051")
	v.SetDefault(StoreDriverKey, DriverSQLite)
	v.SetDefault(StoreSQLitePathKey, "./chatrelay.db")
	v.SetDefault(StorePostgresDSNKey, "")
	v.SetDefault(HistoryLimitKey, 0)
	v.SetDefault(HistoryTimeoutKey, 5*time.Second)
	v.SetDefault(ArchiveQueueSizeKey, 1024)
	v.SetDefault(ArchiveWriteTimeoutKey, 5*time.Second)
	v.SetDefault(TransportSendBufferKey, 256)
	v.SetDefault(TransportPingIntervalKey, 15*time.Second)
	v.SetDefault(TransportReadLimitKey, 65536)
	v.SetDefault(TransportAllowedOriginKey, []string{"*"})
	v.SetDefault(LogEnvKey, "dev")
	v.SetDefault(LogBackendKey, "std")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogAddSourceKey, false)
	v.SetDefault(LogServiceKey, "chatrelay")
	v.SetDefault(LogVersionKey, "dev")
}

// BindFlags registers the command-line flags for the common keys on fs and
// binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("http-addr", ":3000", "HTTP and WebSocket listen address")
	fs.String("grpc-addr", ":50051", "gRPC listen address")
	fs.String("store", DriverSQLite, "history store driver: sqlite, postgres or memory")
	fs.String("sqlite-path", "./chatrelay.db", "sqlite database file")
	fs.String("postgres-dsn", "", "postgres connection string")
	fs.Int("history-limit", 0, "messages replayed on join, 0 for all")
	fs.String("log-level", "info", "debug, info, warn or error")

	bindings := map[string]string{
		HTTPAddrKey:         "http-addr",
		GRPCAddrKey:         "grpc-addr",
		StoreDriverKey:      "store",
		StoreSQLitePathKey:  "sqlite-path",
		StorePostgresDSNKey: "postgres-dsn",
		HistoryLimitKey:     "history-limit",
		LogLevelKey:         "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads configFile when given, then environment variables, and returns
// the validated configuration.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		HTTPAddr: v.GetString(HTTPAddrKey),
		GRPCAddr: v.GetString(GRPCAddrKey),
		Store: Store{
			Driver:      strings.ToLower(strings.TrimSpace(v.GetString(StoreDriverKey))),
			SQLitePath:  v.GetString(StoreSQLitePathKey),
			PostgresDSN: v.GetString(StorePostgresDSNKey),
		},
		History: History{
			Limit:   v.GetInt(HistoryLimitKey),
			Timeout: v.GetDuration(HistoryTimeoutKey),
		},
		Archive: Archive{
			QueueSize:    v.GetInt(ArchiveQueueSizeKey),
			WriteTimeout: v.GetDuration(ArchiveWriteTimeoutKey),
		},
		Transport: Transport{
			SendBuffer:     v.GetInt(TransportSendBufferKey),
			PingInterval:   v.GetDuration(TransportPingIntervalKey),
			ReadLimit:      v.GetInt64(TransportReadLimitKey),
			AllowedOrigins: v.GetStringSlice(TransportAllowedOriginKey),
		},
		Log: Log{
			Env:       v.GetString(LogEnvKey),
			Backend:   v.GetString(LogBackendKey),
			Level:     v.GetString(LogLevelKey),
			AddSource: v.GetBool(LogAddSourceKey),
			Service:   v.GetString(LogServiceKey),
			Version:   v.GetString(LogVersionKey),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", HTTPAddrKey))
	}
	if c.GRPCAddr == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", GRPCAddrKey))
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", StoreSQLitePathKey))
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%s is required for the postgres store", StorePostgresDSNKey))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", StoreDriverKey, c.Store.Driver))
	}
	if c.History.Limit < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", HistoryLimitKey))
	}
	if c.History.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", HistoryTimeoutKey))
	}
	if c.Archive.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", ArchiveQueueSizeKey))
	}
	if c.Archive.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", ArchiveWriteTimeoutKey))
	}
	if c.Transport.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", TransportSendBufferKey))
	}
	if c.Transport.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", TransportPingIntervalKey))
	}
	if c.Transport.ReadLimit <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", TransportReadLimitKey))
	}
	return errors.Join(errs...)
}
