package logger

import (
	"context"
	"errors"
	"testing"
)

func TestInitAndGet(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("sync: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("global logger is nil after Init")
	}
}

func TestGetBeforeInitPanics(t *testing.T) {
	old := global
	global = nil
	defer func() {
		global = old
		if recover() == nil {
			t.Fatal("expected panic from Get before Init")
		}
	}()
	Get()
}

func TestNamedChaining(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	l := Named("app").Named("refresh")
	cl, ok := l.(*componentLogger)
	if !ok {
		t.Fatalf("unexpected logger type %T", l)
	}
	if cl.name != "app.refresh" {
		t.Fatalf("component chain = %q, want app.refresh", cl.name)
	}

	ctx := context.Background()
	l.Info(ctx, "pipeline pass",
		Int("records", 3),
		Float64("seconds", 0.25),
		Error(errors.New("one hour down")))
	l.Debug(ctx, "suppressed at default level")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, level := range []string{"debug", "info", "WARN", "warning", "error", " Info ", ""} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("SetLevelString(%q): %v", level, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFieldConstructors(t *testing.T) {
	if f := String("id", "b-1"); f.Key != "id" || f.Value != "b-1" {
		t.Errorf("String field = %+v", f)
	}
	if f := Int("hour", 7); f.Key != "hour" || f.Value != 7 {
		t.Errorf("Int field = %+v", f)
	}
	if f := Float64("lat", 51.5); f.Key != "lat" || f.Value != 51.5 {
		t.Errorf("Float64 field = %+v", f)
	}
	err := errors.New("boom")
	if f := Error(err); f.Key != "error" || f.Value != error(err) {
		t.Errorf("Error field = %+v", f)
	}
}
