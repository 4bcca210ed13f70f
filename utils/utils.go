// Package utils contains small helpers shared by the device packages.
package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FormatHex renders value as lowercase hex with a 0x prefix, zero padded to
// width digits.
func FormatHex(value uint64, width int) string {
	return fmt.Sprintf("0x%0*x", width, value)
}

// ParseWindowsGUID parses a GUID in any of the usual registry forms, braced
// or not.
func ParseWindowsGUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.UUID{}, errors.Wrapf(err, "invalid GUID %q", s)
	}
	return id, nil
}

// FormatWindowsGUID renders a GUID the way the registry stores setup class
// GUIDs, braced and uppercase.
func FormatWindowsGUID(id uuid.UUID) string {
	return "{" + strings.ToUpper(id.String()) + "}"
}
