package repository

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/lib/pq"
)

func TestSSLModeOf(t *testing.T) {
	t.Setenv("PGSSLMODE", "")

	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://app@db:5432/app", ""},
		{"postgres://app@db:5432/app?sslmode=disable", "disable"},
		{"postgresql://app@db/app?connect_timeout=5&sslmode=verify-full", "verify-full"},
		{"host=db user=app sslmode=prefer", "prefer"},
		{"host=db user=app", ""},
	}

	for _, tt := range tests {
		if got := sslModeOf(tt.dsn); got != tt.want {
			t.Errorf("sslModeOf(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}

	t.Setenv("PGSSLMODE", "require")
	if got := sslModeOf("postgres://app@db/app"); got != "require" {
		t.Errorf("PGSSLMODE fallback = %q, want require", got)
	}
}

func TestWithSSLMode(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://app@db:5432/app", "postgres://app@db:5432/app?sslmode=disable"},
		{"postgres://app@db:5432/app?sslmode=prefer", "postgres://app@db:5432/app?sslmode=disable"},
		{"host=db sslmode=prefer user=app", "host=db sslmode=disable user=app"},
		{"host=db user=app", "host=db user=app sslmode=disable"},
	}

	for _, tt := range tests {
		if got := withSSLMode(tt.dsn, "disable"); got != tt.want {
			t.Errorf("withSSLMode(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

// plaintextServer accepts connections, refuses TLS upgrades like a server
// built without SSL, and drops every other startup. It records whether each
// connection opened with an SSL request.
type plaintextServer struct {
	ln    net.Listener
	mu    sync.Mutex
	kinds []string
}

const sslRequestCode = 80877103

func startPlaintextServer(t *testing.T) *plaintextServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &plaintextServer{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.handle(conn)
		}
	}()
	return s
}

func (s *plaintextServer) handle(conn net.Conn) {
	defer conn.Close()

	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return
	}

	kind := "startup"
	if binary.BigEndian.Uint32(header[4:]) == sslRequestCode {
		kind = "ssl"
		_, _ = conn.Write([]byte{'N'})
	}

	s.mu.Lock()
	s.kinds = append(s.kinds, kind)
	s.mu.Unlock()
}

func (s *plaintextServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.kinds...)
}

func (s *plaintextServer) url(query string) string {
	return "postgres://app@" + s.ln.Addr().String() + "/app" + query
}

func TestOpenMigrationDBFallsBackToPlaintext(t *testing.T) {
	t.Setenv("PGSSLMODE", "")
	srv := startPlaintextServer(t)

	_, err := openMigrationDB(srv.url(""))
	if err == nil {
		t.Fatal("expected error from a server that drops the startup")
	}
	if errors.Is(err, pq.ErrSSLNotSupported) {
		t.Fatalf("missing sslmode should not fail on the TLS refusal: %v", err)
	}

	kinds := srv.seen()
	if len(kinds) < 2 || kinds[0] != "ssl" {
		t.Fatalf("connections = %v, want an SSL attempt followed by plaintext", kinds)
	}
	for _, k := range kinds[1:] {
		if k != "startup" {
			t.Errorf("connections = %v, want plaintext after the refusal", kinds)
		}
	}
}

func TestOpenMigrationDBHonoursExplicitRequire(t *testing.T) {
	t.Setenv("PGSSLMODE", "")
	srv := startPlaintextServer(t)

	_, err := openMigrationDB(srv.url("?sslmode=require"))
	if !errors.Is(err, pq.ErrSSLNotSupported) {
		t.Fatalf("err = %v, want pq.ErrSSLNotSupported", err)
	}
	for _, k := range srv.seen() {
		if k != "ssl" {
			t.Fatalf("connections = %v, want no plaintext attempt", srv.seen())
		}
	}
}
