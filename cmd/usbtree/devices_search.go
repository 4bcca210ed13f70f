//go:build linux || darwin

package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/usbtree/discovery"
	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usbid"
)

// Off Windows there is no bus walk or device registry; the flat search
// still answers vendor and product identity.

func enumerateUSB(ctx context.Context, logger golog.Logger, prof profile) ([]discovery.Device, error) {
	descriptions := usb.Search(usb.SearchFilter{}, func(vendorID, productID int) bool {
		return true
	})
	devices := make([]discovery.Device, 0, len(descriptions))
	for _, desc := range descriptions {
		vendorID := uint16(desc.ID.Vendor)
		productID := uint16(desc.ID.Product)
		devices = append(devices, discovery.Device{
			VendorID:    vendorID,
			ProductID:   productID,
			VendorName:  usbid.VendorName(vendorID),
			Description: usbid.Describe(vendorID, productID),
			DevicePath:  desc.Path,
			Connected:   true,
			IsUSB:       true,
		})
	}
	logger.Debugw("flat usb search", "devices", len(devices))
	return devices, nil
}

func enumerateByClass(ctx context.Context, logger golog.Logger, prof profile, setupClass uuid.UUID) ([]discovery.Device, error) {
	return nil, errors.New("device class enumeration is windows only")
}

func enumerateMassStorage(ctx context.Context, logger golog.Logger, prof profile) ([]discovery.Device, error) {
	return nil, errors.New("mass storage correlation is windows only")
}
