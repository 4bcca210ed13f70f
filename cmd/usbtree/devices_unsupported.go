//go:build !windows && !linux && !darwin

package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/usbtree/discovery"
)

func enumerateUSB(ctx context.Context, logger golog.Logger, prof profile) ([]discovery.Device, error) {
	return nil, errors.New("usb discovery is not supported on this platform")
}

func enumerateByClass(ctx context.Context, logger golog.Logger, prof profile, setupClass uuid.UUID) ([]discovery.Device, error) {
	return nil, errors.New("usb discovery is not supported on this platform")
}

func enumerateMassStorage(ctx context.Context, logger golog.Logger, prof profile) ([]discovery.Device, error) {
	return nil, errors.New("usb discovery is not supported on this platform")
}
