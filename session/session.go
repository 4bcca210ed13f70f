// Package session exposes the discovery engine behind a compact stateful
// surface: run one enumeration, then read the result list by index. It
// mirrors the shape of a handle based foreign caller API, with typed
// result errors in place of result codes.
package session

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/usbtree/devinfo"
	"go.viam.com/usbtree/discovery"
)

// Result errors.
var (
	// ErrInvalidSession marks use of a closed session.
	ErrInvalidSession = errors.New("session is closed")

	// ErrNilArgument marks a zero valued required argument.
	ErrNilArgument = errors.New("nil argument")

	// ErrIndexOutOfRange marks a device index outside the result list.
	ErrIndexOutOfRange = errors.New("device index out of range")

	// ErrNotEnumerated marks a read before any enumeration has run.
	ErrNotEnumerated = errors.New("no enumeration has run")

	// ErrUnknown marks an enumeration that failed without producing any
	// result; the cause travels alongside it.
	ErrUnknown = errors.New("enumeration failed")
)

// Option configures a Session.
type Option func(*config)

type config struct {
	source       devinfo.Source
	discoverOpts []discovery.Option
}

// WithSource replaces the live registry source, for tests and replay.
// The session closes whatever source it ends up with.
func WithSource(source devinfo.Source) Option {
	return func(cfg *config) {
		cfg.source = source
	}
}

// WithDiscoveryOptions forwards options to the underlying discoverer.
func WithDiscoveryOptions(opts ...discovery.Option) Option {
	return func(cfg *config) {
		cfg.discoverOpts = append(cfg.discoverOpts, opts...)
	}
}

// Session holds the result of the most recent enumeration. Methods are
// safe for concurrent use; reads see the snapshot of the last completed
// enumeration.
type Session struct {
	mu         sync.RWMutex
	logger     golog.Logger
	source     devinfo.Source
	disc       *discovery.Discoverer
	devices    []discovery.Device
	enumerated bool
	closed     bool
}

// New opens a session. Without WithSource it reads the live device
// information registry, which only exists on windows.
func New(logger golog.Logger, opts ...Option) (*Session, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	source := cfg.source
	if source == nil {
		var err error
		source, err = devinfo.NewSystemSource(logger)
		if err != nil {
			return nil, errors.Wrap(err, "open record source")
		}
	}
	return &Session{
		logger: logger,
		source: source,
		disc:   discovery.New(source, logger, cfg.discoverOpts...),
	}, nil
}

// EnumerateUSB walks the USB topology and replaces the session's result
// list. A partial walk stores what was found and returns the aggregated
// walk error alongside.
func (s *Session) EnumerateUSB(ctx context.Context) error {
	return s.enumerate(ctx, s.disc.Devices)
}

// EnumerateByClass lists devices registered under one device setup class
// and replaces the session's result list.
func (s *Session) EnumerateByClass(ctx context.Context, setupClass uuid.UUID) error {
	if setupClass == uuid.Nil {
		return ErrNilArgument
	}
	return s.enumerate(ctx, func(ctx context.Context) ([]discovery.Device, error) {
		return s.disc.DevicesByClass(ctx, setupClass)
	})
}

// EnumerateMassStorage walks the USB topology and keeps only mass storage
// devices.
func (s *Session) EnumerateMassStorage(ctx context.Context) error {
	return s.enumerate(ctx, s.disc.MassStorageDevices)
}

func (s *Session) enumerate(ctx context.Context, run func(context.Context) ([]discovery.Device, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrInvalidSession
	}
	devices, err := run(ctx)
	if devices == nil && err != nil {
		// Nothing found and nothing walkable; the previous snapshot stays.
		return multierr.Append(ErrUnknown, err)
	}
	s.devices = devices
	s.enumerated = true
	s.logger.Debugw("enumeration complete", "devices", len(devices))
	return err
}

// Count returns the size of the current result list, zero before any
// enumeration.
func (s *Session) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// DeviceAt returns one device from the current result list.
func (s *Session) DeviceAt(index int) (discovery.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return discovery.Device{}, ErrInvalidSession
	}
	if !s.enumerated {
		return discovery.Device{}, ErrNotEnumerated
	}
	if index < 0 || index >= len(s.devices) {
		return discovery.Device{}, errors.Wrapf(ErrIndexOutOfRange, "index %d of %d devices", index, len(s.devices))
	}
	return s.devices[index], nil
}

// Devices returns a copy of the current result list.
func (s *Session) Devices() []discovery.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	devices := make([]discovery.Device, len(s.devices))
	copy(devices, s.devices)
	return devices
}

// Close releases the record source. Any further use, including a second
// Close, reads as an invalid session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrInvalidSession
	}
	s.closed = true
	s.devices = nil
	s.enumerated = false
	return s.source.Close()
}
