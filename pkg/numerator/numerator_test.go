package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // simulates the sequence row
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentValue++
	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("MOV")
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "MOV-2026-00001" {
		t.Errorf("expected MOV-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "MOV-2026-00002" {
		t.Errorf("expected MOV-2026-00002, got %s", num)
	}
}

func TestGetNextNumber_NoYear(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	cfg := Config{Prefix: "OB", IncludeYear: false, PadWidth: 3, ResetPeriod: "never"}

	num, err := svc.GetNextNumber(context.Background(), cfg, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "OB-001" {
		t.Errorf("expected OB-001, got %s", num)
	}
}

func TestBuildKey(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		reset string
		want  string
	}{
		{"year", "MOV_2026"},
		{"month", "MOV_2026_03"},
		{"never", "MOV"},
	}

	for _, tt := range tests {
		cfg := DefaultConfig("MOV")
		cfg.ResetPeriod = tt.reset
		if got := buildKey(cfg, period); got != tt.want {
			t.Errorf("buildKey(%s) = %s, want %s", tt.reset, got, tt.want)
		}
	}
}
