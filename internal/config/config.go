package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type GRPC struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

func (g GRPC) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

type Database struct {
	// URL selects the backend: postgres:// or postgresql:// for Postgres, anything
	// else is a SQLite path.
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Booking holds the policy shared by every venue served by this process.
type Booking struct {
	// Location is the wall clock booking dates and times are interpreted in.
	Location *time.Location
	// TokenLength is the length of the opaque token handed out with each booking.
	TokenLength int
}

type Config struct {
	GRPC            GRPC
	Database        Database
	Booking         Booking
	ShutdownTimeout time.Duration
	LogLevel        string
}

func (c Config) GRPCAddr() string {
	return c.GRPC.Addr()
}

const (
	minTokenLength = 16
	maxTokenLength = 64
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("VENUEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.addr", "")
	v.SetDefault("grpc.request_timeout", "10s")
	v.SetDefault("database.url", "venuebook.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("booking.timezone", "Local")
	v.SetDefault("booking.token_length", 21)
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")

	// Unprefixed aliases for container platforms.
	_ = v.BindEnv("grpc.host", "VENUEBOOK_GRPC_HOST", "GRPC_HOST")
	_ = v.BindEnv("grpc.port", "VENUEBOOK_GRPC_PORT", "GRPC_PORT", "PORT")
	_ = v.BindEnv("grpc.addr", "VENUEBOOK_GRPC_ADDR", "GRPC_ADDR")
	_ = v.BindEnv("database.url", "VENUEBOOK_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("log.level", "VENUEBOOK_LOG_LEVEL", "LOG_LEVEL")
	return v
}

func durations(v *viper.Viper, keys ...string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(keys))
	for _, k := range keys {
		d, err := time.ParseDuration(strings.TrimSpace(v.GetString(k)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

func Load() (Config, error) {
	v := newViper()

	d, err := durations(v, "grpc.request_timeout", "database.conn_max_lifetime", "database.conn_max_idle_time", "shutdown.timeout")
	if err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("booking.timezone")))
	if err != nil {
		return Config{}, fmt.Errorf("booking.timezone: %w", err)
	}
	tokenLength := v.GetInt("booking.token_length")
	if tokenLength < minTokenLength || tokenLength > maxTokenLength {
		return Config{}, fmt.Errorf("booking.token_length: must be between %d and %d, got %d", minTokenLength, maxTokenLength, tokenLength)
	}

	g := GRPC{
		Host:           strings.TrimSpace(v.GetString("grpc.host")),
		Port:           v.GetInt("grpc.port"),
		RequestTimeout: d["grpc.request_timeout"],
	}
	// grpc.addr wins over host and port when it parses.
	if addr := strings.TrimSpace(v.GetString("grpc.addr")); addr != "" {
		if host, portStr, err := net.SplitHostPort(addr); err == nil {
			if host != "" {
				g.Host = host
			}
			if port, err := strconv.Atoi(portStr); err == nil {
				g.Port = port
			}
		}
	}

	return Config{
		GRPC: g,
		Database: Database{
			URL:             strings.TrimSpace(v.GetString("database.url")),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: d["database.conn_max_lifetime"],
			ConnMaxIdleTime: d["database.conn_max_idle_time"],
		},
		Booking: Booking{
			Location:    loc,
			TokenLength: tokenLength,
		},
		ShutdownTimeout: d["shutdown.timeout"],
		LogLevel:        v.GetString("log.level"),
	}, nil
}
