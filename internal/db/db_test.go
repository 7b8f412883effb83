package db

import (
	"context"
	"testing"
	"time"
)

func openMem(t *testing.T, name string) *DB {
	t.Helper()
	d, err := Open(DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM users WHERE email = ? AND status IN (?, ?)`
	if got := Rebind(DriverSQLite, q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	if got := Rebind(DriverMySQL, q); got != q {
		t.Fatalf("mysql rebind changed query: %s", got)
	}
	want := `SELECT * FROM users WHERE email = $1 AND status IN ($2, $3)`
	if got := Rebind(DriverPostgres, q); got != want {
		t.Fatalf("pgx rebind = %s, want %s", got, want)
	}
}

func TestSplitStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (id INTEGER);\n\n-- next\nCREATE INDEX i ON a(id);\n"
	got := splitStatements(script)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX i ON a(id)" {
		t.Fatalf("unexpected statement %q", got[1])
	}
}

func TestOpen_AppliesMigrationsAndRollsBack(t *testing.T) {
	d := openMem(t, "migrate_roundtrip")
	v, err := AppliedVersion(d)
	if err != nil {
		t.Fatalf("applied version: %v", err)
	}
	if v != 3 {
		t.Fatalf("expected version 3, got %d", v)
	}
	if err := RollbackLast(d); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if v, _ = AppliedVersion(d); v != 2 {
		t.Fatalf("expected version 2 after rollback, got %d", v)
	}
	if _, err := d.ExecContext(context.Background(), `SELECT 1 FROM checkouts`); err == nil {
		t.Fatalf("checkouts table should be gone")
	}
	if err := applyMigrations(d); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if v, _ = AppliedVersion(d); v != 3 {
		t.Fatalf("expected version 3 after reapply, got %d", v)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	d := openMem(t, "unique_violation")
	ctx := context.Background()
	now := FormatTime(time.Now())
	ins := `INSERT INTO subdomains (id, user_id, label, fqdn, created_at) VALUES (?,?,?,?,?)`
	if _, err := d.ExecContext(ctx, ins, "a", "u1", "blog", "blog.example.com", now); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := d.ExecContext(ctx, ins, "b", "u2", "blog", "blog.example.com", now)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(nil) {
		t.Fatalf("nil is not a violation")
	}
}

func TestTimeLayout_SortsLexically(t *testing.T) {
	a := FormatTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	b := FormatTime(time.Date(2024, 1, 2, 3, 4, 5, 1000, time.UTC))
	if !(a < b) {
		t.Fatalf("expected %s < %s", a, b)
	}
	got, err := ParseTime(b)
	if err != nil || got.Nanosecond() != 1000 {
		t.Fatalf("parse %s: %v %v", b, got, err)
	}
}
