package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ctrlplane/devicetransport/logger"
)

func TestNewWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf)

	log.Log(logger.WarnLevel, "transport.serial", "port lost", logger.Fields{"port": "/dev/ttyUSB0"})

	out := buf.String()
	if !strings.Contains(out, "port lost") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "transport.serial") {
		t.Fatalf("expected target in output, got %q", out)
	}
	if !strings.Contains(out, "ttyUSB0") {
		t.Fatalf("expected field value in output, got %q", out)
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	log := logger.Discard()
	log.Log(logger.ErrorLevel, "x", "should not panic or write anywhere", nil)
}
