//go:build !windows

package devinfo

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// NewSystemSource only has a registry implementation on windows. Other
// platforms construct sources over static or injected record sets.
func NewSystemSource(logger golog.Logger) (Source, error) {
	return nil, errors.New("the device information registry is windows only")
}
