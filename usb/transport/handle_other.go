//go:build !windows

package transport

import "github.com/pkg/errors"

// openHandle only has a kernel implementation on windows. Other platforms
// construct transports over injected handles.
func openHandle(path string) (Handle, error) {
	return nil, errors.New("kernel device handles are windows only")
}
