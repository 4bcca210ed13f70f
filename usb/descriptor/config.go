package descriptor

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
)

// Config is the 9 byte header of a USB configuration descriptor. The full
// configuration, interface and endpoint descriptors included, follows it in
// the same buffer and is TotalLength bytes overall.
type Config struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8
}

// ParseConfig decodes a configuration descriptor header.
func ParseConfig(b []byte) (Config, error) {
	if len(b) < ConfigSize {
		return Config{}, errors.Errorf("config descriptor needs %d bytes; got %d", ConfigSize, len(b))
	}
	return Config{
		Length:             b[0],
		DescriptorType:     b[1],
		TotalLength:        binary.LittleEndian.Uint16(b[2:]),
		NumInterfaces:      b[4],
		ConfigurationValue: b[5],
		ConfigurationIndex: b[6],
		Attributes:         b[7],
		MaxPower:           b[8],
	}, nil
}

// Encode renders the header back into its 9 byte wire form.
func (c Config) Encode() []byte {
	b := make([]byte, ConfigSize)
	b[0] = c.Length
	b[1] = c.DescriptorType
	binary.LittleEndian.PutUint16(b[2:], c.TotalLength)
	b[4] = c.NumInterfaces
	b[5] = c.ConfigurationValue
	b[6] = c.ConfigurationIndex
	b[7] = c.Attributes
	b[8] = c.MaxPower
	return b
}

// ValidateConfig reports whether b starts with a plausible configuration
// descriptor.
func ValidateConfig(b []byte) bool {
	if len(b) < ConfigSize {
		return false
	}
	return b[0] >= ConfigSize && b[1] == TypeConfig && binary.LittleEndian.Uint16(b[2:]) >= ConfigSize
}

// FirstInterfaceClass walks the sub descriptors of a full configuration
// buffer and returns the class of the first interface descriptor. A
// malformed chain, a zero length sub descriptor included, reads as not
// found.
func FirstInterfaceClass(b []byte) (usb.Class, bool) {
	pos := ConfigSize
	for inBounds(b, pos) {
		length, descType := int(b[pos]), b[pos+1]
		if descType == TypeInterface && (length == InterfaceSize || length == Interface2Size) {
			return usb.Class(b[pos+5]), true
		}
		pos += length
	}
	return 0, false
}

// InterfaceCount counts the interface descriptors in a full configuration
// buffer, alternate settings included.
func InterfaceCount(b []byte) int {
	var count int
	pos := ConfigSize
	for inBounds(b, pos) {
		length, descType := int(b[pos]), b[pos+1]
		if descType == TypeInterface && (length == InterfaceSize || length == Interface2Size) {
			count++
		}
		pos += length
	}
	return count
}

// HasStringIndexes walks a full configuration buffer, the leading header
// included, for any configuration or interface descriptor that names a
// string. Fixed size descriptors with the wrong length make the whole
// buffer untrustworthy and read as false.
func HasStringIndexes(b []byte) bool {
	pos := 0
	for inBounds(b, pos) {
		length, descType := int(b[pos]), b[pos+1]
		switch descType {
		case TypeConfig, TypeOtherSpeedConfig:
			if length != ConfigSize {
				return false
			}
			if b[pos+6] != 0 {
				return true
			}
		case TypeInterface:
			if length != InterfaceSize && length != Interface2Size {
				return false
			}
			if b[pos+8] != 0 {
				return true
			}
		}
		pos += length
	}
	return false
}
