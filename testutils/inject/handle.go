package inject

import "go.viam.com/usbtree/usb/transport"

// Handle is an injected device handle.
type Handle struct {
	transport.Handle
	ControlFunc func(code uint32, in, out []byte) (int, error)
	CloseFunc   func() error
}

// Control calls the injected Control or the real version.
func (h *Handle) Control(code uint32, in, out []byte) (int, error) {
	if h.ControlFunc == nil {
		return h.Handle.Control(code, in, out)
	}
	return h.ControlFunc(code, in, out)
}

// Close calls the injected Close or the real version.
func (h *Handle) Close() error {
	if h.CloseFunc == nil {
		if h.Handle == nil {
			return nil
		}
		return h.Handle.Close()
	}
	return h.CloseFunc()
}
