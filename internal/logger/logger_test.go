package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestForFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   []string
	}{
		{"json", []string{`"msg":"opened"`, `"dict":"Elipsoid.CSD"`, `"level":"INFO"`}},
		{"JSON", []string{`"msg":"opened"`}},
		{"text", []string{"msg=opened", "dict=Elipsoid.CSD"}},
		{"pretty", []string{"INFO", "opened", "dict=Elipsoid.CSD"}},
		{"", []string{"opened"}},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		ForFormat(tc.format, &buf, slog.LevelInfo).Info("opened", "dict", "Elipsoid.CSD")
		for _, want := range tc.want {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("ForFormat(%q): expected %q in output, got: %s", tc.format, want, buf.String())
			}
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelWarn)
	log.Info("index built", "entries", 12)
	log.Warn("outside transformation coverage", "lng", -117.5)

	if strings.Contains(buf.String(), "index built") {
		t.Fatalf("info should be filtered at warn level, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "outside transformation coverage") {
		t.Fatalf("expected warning in output, got: %s", buf.String())
	}
}

func TestWithAndGroup(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("component", "catalog").WithGroup("record")
	log.Info("updated", "kind", "dt")

	out := buf.String()
	if !strings.Contains(out, `"component":"catalog"`) || !strings.Contains(out, `"record":{"kind":"dt"}`) {
		t.Fatalf("expected component and grouped kind, got: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}

	var buf bytes.Buffer
	ctx := WithContext(context.Background(), Text(&buf, slog.LevelInfo))
	FromContext(ctx).Info("bridge built", "steps", 2)
	if !strings.Contains(buf.String(), "steps=2") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" Warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := Discard()
	log.Error("dropped", "dict", "Datums.CSD")
	log.With("kind", "dt").WithGroup("g").Warn("dropped too")
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) || !h.Enabled(ctx, slog.LevelWarn) || !h.Enabled(ctx, slog.LevelError) {
		t.Fatal("expected only warn and above to be enabled")
	}
	if !NewPrettyHandler(&bytes.Buffer{}, nil).Enabled(ctx, slog.LevelInfo) {
		t.Fatal("expected info enabled by default")
	}
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	if h.WithGroup("") != h {
		t.Fatal("WithGroup(\"\") should return the same handler")
	}
	slog.New(h.WithGroup("a").WithGroup("b")).Info("nested", "key", "val")
	if !strings.Contains(buf.String(), "a.b.key=val") {
		t.Fatalf("expected 'a.b.key=val' in output, got: %s", buf.String())
	}

	buf.Reset()
	h2 := h.WithGroup("dict").WithAttrs([]slog.Attr{slog.String("kind", "gx")})
	slog.New(h2).Info("reloaded", "records", 12)
	out := buf.String()
	if !strings.Contains(out, "dict.kind=gx") || !strings.Contains(out, "dict.records=12") {
		t.Fatalf("expected grouped keys, got: %s", out)
	}
}

type point struct{ lng, lat float64 }

func (p point) LogValue() slog.Value {
	return slog.GroupValue(slog.Float64("lng", p.lng), slog.Float64("lat", p.lat))
}

func TestPrettyValues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil)).Info("outside coverage",
		"at", point{-117.5, 34.25},
		"resolution", 0.1,
		"path", "/usr/share/cs map/Datums.CSD",
		"name", "NAD27_to_WGS84")

	out := buf.String()
	for _, want := range []string{
		"at.lng=-117.5", "at.lat=34.25", "resolution=0.1",
		`path="/usr/share/cs map/Datums.CSD"`, "name=NAD27_to_WGS84",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("expected no colour codes for a non-terminal writer, got: %q", out)
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"simple":      false,
		"":            false,
		"Datums.CSD":  false,
		"has space":   true,
		"has\ttab":    true,
		"line\nbreak": true,
		`has"quote`:   true,
		"key=value":   true,
	}
	for in, want := range tests {
		if got := needsQuoting(in); got != want {
			t.Errorf("needsQuoting(%q) = %v, want %v", in, got, want)
		}
	}
}
