package config

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"GRPC_HOST", "GRPC_PORT", "PORT", "GRPC_ADDR", "DATABASE_URL", "VENUEBOOK_BOOKING_TIMEZONE", "VENUEBOOK_BOOKING_TOKEN_LENGTH"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPCAddr() != "0.0.0.0:50051" {
		t.Fatalf("grpc addr = %q", cfg.GRPCAddr())
	}
	if cfg.Database.URL != "venuebook.db" {
		t.Fatalf("database url = %q", cfg.Database.URL)
	}
	if cfg.GRPC.RequestTimeout != 10*time.Second {
		t.Fatalf("request timeout = %s", cfg.GRPC.RequestTimeout)
	}
	if cfg.Booking.Location != time.Local {
		t.Fatalf("location = %v, want Local", cfg.Booking.Location)
	}
	if cfg.Booking.TokenLength != 21 {
		t.Fatalf("token length = %d", cfg.Booking.TokenLength)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VENUEBOOK_GRPC_ADDR", "127.0.0.1:6000")
	t.Setenv("VENUEBOOK_DATABASE_URL", "postgres://u:p@db:5432/venuebook")
	t.Setenv("VENUEBOOK_BOOKING_TIMEZONE", "Europe/Berlin")
	t.Setenv("VENUEBOOK_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("VENUEBOOK_BOOKING_TOKEN_LENGTH", "32")
	t.Setenv("VENUEBOOK_DATABASE_MAX_OPEN_CONNS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GRPC.Host != "127.0.0.1" || cfg.GRPC.Port != 6000 {
		t.Fatalf("grpc = %s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	}
	if cfg.Database.URL != "postgres://u:p@db:5432/venuebook" {
		t.Fatalf("database url = %q", cfg.Database.URL)
	}
	if cfg.Booking.Location.String() != "Europe/Berlin" {
		t.Fatalf("location = %v", cfg.Booking.Location)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout = %s", cfg.ShutdownTimeout)
	}
	if cfg.Booking.TokenLength != 32 {
		t.Fatalf("token length = %d", cfg.Booking.TokenLength)
	}
	if cfg.Database.MaxOpenConns != 4 {
		t.Fatalf("max open conns = %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_RejectsBadDurationAndZone(t *testing.T) {
	t.Setenv("VENUEBOOK_GRPC_REQUEST_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad duration")
	}

	t.Setenv("VENUEBOOK_GRPC_REQUEST_TIMEOUT", "5s")
	t.Setenv("VENUEBOOK_BOOKING_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestLoad_RejectsTokenLengthOutOfRange(t *testing.T) {
	for _, n := range []string{"8", "65"} {
		t.Setenv("VENUEBOOK_BOOKING_TOKEN_LENGTH", n)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for token length %s", n)
		}
	}
}
