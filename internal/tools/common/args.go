package common

import (
	"fmt"
	"strings"
)

// RequiredString returns a non-blank string argument.
func RequiredString(args map[string]any, key string) (string, error) {
	v, ok := OptionalString(args, key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// OptionalString returns a string argument and whether it was present.
// Values of another type count as absent.
func OptionalString(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

// OptionalBool returns a boolean argument and whether it was present. The
// strings "true" and "false" are accepted too.
func OptionalBool(args map[string]any, key string) (bool, bool) {
	switch v := args[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
