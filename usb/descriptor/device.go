package descriptor

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
)

// Device is a USB device descriptor.
type Device struct {
	Length            uint8
	DescriptorType    uint8
	BcdUSB            uint16
	DeviceClass       usb.Class
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	BcdDevice         uint16
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// ParseDevice decodes an 18 byte device descriptor.
func ParseDevice(b []byte) (Device, error) {
	if len(b) < DeviceSize {
		return Device{}, errors.Errorf("device descriptor needs %d bytes; got %d", DeviceSize, len(b))
	}
	return Device{
		Length:            b[0],
		DescriptorType:    b[1],
		BcdUSB:            binary.LittleEndian.Uint16(b[2:]),
		DeviceClass:       usb.Class(b[4]),
		DeviceSubClass:    b[5],
		DeviceProtocol:    b[6],
		MaxPacketSize0:    b[7],
		VendorID:          binary.LittleEndian.Uint16(b[8:]),
		ProductID:         binary.LittleEndian.Uint16(b[10:]),
		BcdDevice:         binary.LittleEndian.Uint16(b[12:]),
		ManufacturerIndex: b[14],
		ProductIndex:      b[15],
		SerialNumberIndex: b[16],
		NumConfigurations: b[17],
	}, nil
}

// Encode renders the descriptor back into its 18 byte wire form.
func (d Device) Encode() []byte {
	b := make([]byte, DeviceSize)
	b[0] = d.Length
	b[1] = d.DescriptorType
	binary.LittleEndian.PutUint16(b[2:], d.BcdUSB)
	b[4] = uint8(d.DeviceClass)
	b[5] = d.DeviceSubClass
	b[6] = d.DeviceProtocol
	b[7] = d.MaxPacketSize0
	binary.LittleEndian.PutUint16(b[8:], d.VendorID)
	binary.LittleEndian.PutUint16(b[10:], d.ProductID)
	binary.LittleEndian.PutUint16(b[12:], d.BcdDevice)
	b[14] = d.ManufacturerIndex
	b[15] = d.ProductIndex
	b[16] = d.SerialNumberIndex
	b[17] = d.NumConfigurations
	return b
}

// Valid reports whether the descriptor has the mandatory length, type, and
// a plausible specification release number.
func (d Device) Valid() bool {
	return d.Length == DeviceSize && d.DescriptorType == TypeDevice && d.BcdUSB >= 0x0100
}

// HasStringIndexes reports whether any of the descriptor's string indexes
// point at a real string.
func (d Device) HasStringIndexes() bool {
	return d.ManufacturerIndex != 0 || d.ProductIndex != 0 || d.SerialNumberIndex != 0
}
