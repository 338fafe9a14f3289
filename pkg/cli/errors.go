package cli

import "fmt"

// ConfigError reports configuration the process refuses to start with.
// Field names the offending key in dotted form ("server.port") when the
// failure is attributable to one; it is empty when the failure covers the
// whole configuration, such as an unreadable file.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration at %s: %s", e.Field, e.Reason)
}

// CommandError wraps a failure from one subcommand so the top-level error
// output names the command that produced it.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError. Pass an empty field when the
// failure is not tied to a single key.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// NewCommandError wraps err as a failure of the named command.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
