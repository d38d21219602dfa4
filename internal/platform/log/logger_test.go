package log

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
}

func TestNewLoggerParsesLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(" DEBUG ")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestInitSentryWithoutDSNIsDisabled(t *testing.T) {
	t.Parallel()

	hub, flush, err := InitSentry(Discard(), SentrySettings{})
	if err != nil {
		t.Fatalf("InitSentry returned error: %v", err)
	}
	if hub != nil {
		t.Fatalf("expected nil hub without DSN")
	}
	flush()
}

func TestComponentToleratesNilLogger(t *testing.T) {
	t.Parallel()

	entry := Component(nil, "resolver")
	if entry.Data["component"] != "resolver" {
		t.Fatalf("expected component field, got %v", entry.Data)
	}
}

func TestComponentErrorLogsFields(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	ComponentError(logger, "publishing.pages", logrus.Fields{"slug": "about"}, eris.New("boom"), "saving page failed")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected error level, got %s", entry.Level)
	}
	if entry.Message != "saving page failed" {
		t.Fatalf("unexpected message %q", entry.Message)
	}
	if entry.Data["component"] != "publishing.pages" {
		t.Fatalf("unexpected component %v", entry.Data["component"])
	}
	if entry.Data["error"] != "boom" {
		t.Fatalf("unexpected error field %v", entry.Data["error"])
	}
	if entry.Data["slug"] != "about" {
		t.Fatalf("unexpected slug field %v", entry.Data["slug"])
	}
}

func TestComponentErrorIgnoresNilInputs(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	ComponentError(logger, "http", nil, nil, "nothing happened")
	ComponentError(nil, "http", nil, eris.New("boom"), "no logger")

	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected no entries, got %d", len(hook.AllEntries()))
	}
}
