package log

import (
	"bytes"
	"testing"
)

func TestSetDefaultLogger(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
	}()

	customLogger := New(ConfigFrom("debug", "text", &bytes.Buffer{}))
	SetDefaultLogger(customLogger)

	if defaultLogger != customLogger {
		t.Error("SetDefaultLogger did not set the default logger")
	}
	if DefaultLogger() != customLogger {
		t.Error("DefaultLogger did not return the custom logger")
	}
}

func TestDefaultLoggerLazyInit(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
	}()

	defaultLogger = nil
	l := DefaultLogger()
	if l == nil {
		t.Fatal("DefaultLogger returned nil")
	}
	if DefaultLogger() != l {
		t.Error("DefaultLogger should return the same instance after lazy init")
	}
}

func TestOrDefault(t *testing.T) {
	l := Discard()
	if OrDefault(l) != l {
		t.Error("OrDefault should keep a non-nil logger")
	}
	if OrDefault(nil) == nil {
		t.Error("OrDefault should fall back to the default logger")
	}
}
