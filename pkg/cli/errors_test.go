package cli

import (
	"errors"
	"testing"
)

func TestConfigErrorWithField(t *testing.T) {
	err := NewConfigError("server.bind_address", "missing required field")

	expected := "invalid configuration at server.bind_address: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConfigErrorWithoutField(t *testing.T) {
	err := NewConfigError("", "failed to read config file")

	expected := "invalid configuration: failed to read config file"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("bind: address already in use")
	err := NewCommandError("run", underlying)

	expected := "run: bind: address already in use"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlying := errors.New("unknown target")
	err := NewCommandError("run", underlying)

	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should reach the wrapped error")
	}
	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}
}
