package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
)

const (
	secretPrefixEnv  = "env://"
	secretPrefixFile = "file://"
)

// resolveSecrets walks every string field in the config and resolves
// secret references in place:
//
//	env://VAR_NAME       reads from an environment variable
//	file:///path/secret  reads from a file (trailing whitespace trimmed)
//
// Anything else passes through unchanged.
func resolveSecrets(cfg *Config) error {
	return walkStrings(reflect.ValueOf(cfg).Elem())
}

func walkStrings(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if field := v.Field(i); field.CanSet() {
				if err := walkStrings(field); err != nil {
					return err
				}
			}
		}
	case reflect.String:
		resolved, err := resolveSecretValue(v.String())
		if err != nil {
			return err
		}
		v.SetString(resolved)
	}
	return nil
}

func resolveSecretValue(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, secretPrefixEnv):
		name := strings.TrimPrefix(value, secretPrefixEnv)
		resolved := os.Getenv(name)
		if resolved == "" {
			return "", fmt.Errorf("environment variable %q not set", name)
		}
		return resolved, nil

	case strings.HasPrefix(value, secretPrefixFile):
		path := strings.TrimPrefix(value, secretPrefixFile)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read secret file %q: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil

	default:
		return value, nil
	}
}
