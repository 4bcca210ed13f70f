package inject

import "go.viam.com/usbtree/devinfo"

// Source is an injected device information source.
type Source struct {
	devinfo.Source
	RecordsFunc func(filter devinfo.Filter) ([]devinfo.Record, error)
	CloseFunc   func() error
}

// Records calls the injected Records or the real version.
func (s *Source) Records(filter devinfo.Filter) ([]devinfo.Record, error) {
	if s.RecordsFunc == nil {
		return s.Source.Records(filter)
	}
	return s.RecordsFunc(filter)
}

// Close calls the injected Close or the real version.
func (s *Source) Close() error {
	if s.CloseFunc == nil {
		if s.Source == nil {
			return nil
		}
		return s.Source.Close()
	}
	return s.CloseFunc()
}
