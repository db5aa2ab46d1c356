package testutil

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"userCrudAPI/internal/db"
)

// InMemoryURL returns a DATABASE_URL for a named, shared-cache in-memory SQLite database.
func InMemoryURL(name string) string {
	return "file:" + name + "?mode=memory&cache=shared"
}

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The database lives as long as the returned handle, which is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sqlx.DB {
	t.Helper()
	d, err := db.Open(InMemoryURL(name))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// RoundTrip dials addr, writes raw as one request and returns everything the
// server wrote before closing the connection.
func RoundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return string(out)
}

// Request builds a raw HTTP/1.1 request text with an optional body.
func Request(method, path, body string) string {
	s := method + " " + path + " HTTP/1.1\r\nHost: localhost\r\n"
	if body != "" {
		s += "Content-Type: application/json\r\n"
	}
	return s + "\r\n" + body
}
