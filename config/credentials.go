package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Secret is a string that is never printed in clear text.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "*****"
}

// GoString ...
func (s Secret) GoString() string {
	return s.String()
}

// Credentials of the storage account.
type Credentials struct {
	AccessKey Secret `json:"access_key"`
	SecretKey Secret `json:"secret_key"`
}

// StartupError is a configuration or credentials problem found before any network call.
type StartupError struct {
	Reason string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// LoadCredentials reads a JSON document with "access_key" and "secret_key" from pth.
// Both keys are required. Other keys are ignored.
func LoadCredentials(pth string) (Credentials, error) {
	content, err := os.ReadFile(pth)
	if err != nil {
		return Credentials{}, &StartupError{Reason: "read credentials", Err: err}
	}

	var creds Credentials
	if err := json.Unmarshal(content, &creds); err != nil {
		return Credentials{}, &StartupError{Reason: "parse credentials " + pth, Err: err}
	}

	if creds.AccessKey == "" {
		return Credentials{}, &StartupError{Reason: "access_key is missing from " + pth}
	}
	if creds.SecretKey == "" {
		return Credentials{}, &StartupError{Reason: "secret_key is missing from " + pth}
	}

	return creds, nil
}
