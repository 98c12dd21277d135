package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestBrowserCommand(t *testing.T) {
	tc := []struct {
		goos string
		want string
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "http://localhost:3000")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.want {
				t.Errorf("got %q, want %q", name, tt.want)
			}
			if args[len(args)-1] != "http://localhost:3000" {
				t.Errorf("url should be the last argument, got %v", args)
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		if _, _, err := browserCommand("plan9", "http://localhost"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLogging(t *testing.T) {
	t.Run("Parse Level", func(t *testing.T) {
		tc := map[string]log.Level{
			"":      log.InfoLevel,
			"debug": log.DebugLevel,
			"warn":  log.WarnLevel,
			"error": log.ErrorLevel,
			"loud":  log.InfoLevel,
		}
		for in, want := range tc {
			if got := ParseLogLevel(in); got != want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
			}
		}
	})

	t.Run("Child Logger Keys", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "job", "daily")
		logger.Info("done")
		if !strings.Contains(buf.String(), "job=daily") {
			t.Errorf("expected job key in %q", buf.String())
		}
	})

	t.Run("Level Filter", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("info should be filtered at warn level, got %q", buf.String())
		}
	})

	t.Run("File Logger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "view.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("hello")
	})
}

func TestIdentifiers(t *testing.T) {
	t.Run("State Tokens Differ", func(t *testing.T) {
		a, err := GenerateState()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := GenerateState()
		if a == b || len(a) != 32 {
			t.Errorf("expected distinct 32-char tokens, got %q and %q", a, b)
		}
	})

	t.Run("IDs Are UUIDs", func(t *testing.T) {
		if id := GenerateID(); len(id) != 36 {
			t.Errorf("expected uuid string, got %q", id)
		}
	})
}
