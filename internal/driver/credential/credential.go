// Package credential resolves driver secrets from the process environment.
package credential

import (
	"fmt"
	"strings"
)

// LookupFunc resolves one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// MissingError reports one required variable that is unset or blank.
type MissingError struct {
	// Variable is the environment variable name.
	Variable string
	// Hints tells the operator where the value comes from.
	Hints []string
}

// Error implements error.
func (e *MissingError) Error() string {
	return fmt.Sprintf("%s not set", e.Variable)
}

// Require returns the trimmed value of variable or a *MissingError.
func Require(lookup LookupFunc, variable string, hints ...string) (string, error) {
	if value := Optional(lookup, variable); value != "" {
		return value, nil
	}

	return "", &MissingError{Variable: variable, Hints: hints}
}

// Optional returns the trimmed value of variable, or "" when unset.
func Optional(lookup LookupFunc, variable string) string {
	if lookup == nil {
		return ""
	}
	value, ok := lookup(variable)
	if !ok {
		return ""
	}

	return strings.TrimSpace(value)
}
