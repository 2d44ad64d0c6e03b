// Package transfer maps binary payloads to text-safe message bodies and
// back, and resolves local file names for received payloads so existing
// files are never overwritten.
package transfer

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"stompcat/internal/errors"
)

// Encode renders raw bytes as a text-safe message body.  Any byte
// sequence round-trips through Encode and Decode unchanged.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode recovers raw bytes from a text-safe message body.
func Decode(body string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}

// Resolve returns the name a received file should be written under.
// If name already exists on disk, the current Unix timestamp is
// appended so the existing file is kept.  Two receipts of the same
// name within one second resolve to the same suffix.
func Resolve(name string) string {
	if _, err := os.Stat(name); err == nil {
		return fmt.Sprintf("%s.%d", name, time.Now().Unix())
	}
	return name
}

// CheckName rejects names that would write outside the working
// directory.  Only bare file names are accepted: no separators,
// no parent references, no absolute paths.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return &errors.ResourceError{
			Path: name,
			Msg:  fmt.Sprintf("refusing unsafe file name %q", name),
		}
	}
	return nil
}

// Save writes data under the resolved form of name and returns the
// name actually used.
func Save(name string, data []byte) (string, error) {
	resolved := Resolve(name)
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return "", &errors.ResourceError{
			Path: resolved,
			Msg:  fmt.Sprintf("cannot save %s", resolved),
			Err:  err,
		}
	}
	return resolved, nil
}
