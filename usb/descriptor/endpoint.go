package descriptor

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Endpoint is a USB endpoint descriptor.
type Endpoint struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

// ParseEndpoint decodes a 7 byte endpoint descriptor.
func ParseEndpoint(b []byte) (Endpoint, error) {
	if len(b) < EndpointSize {
		return Endpoint{}, errors.Errorf("endpoint descriptor needs %d bytes; got %d", EndpointSize, len(b))
	}
	return Endpoint{
		Length:          b[0],
		DescriptorType:  b[1],
		EndpointAddress: b[2],
		Attributes:      b[3],
		MaxPacketSize:   binary.LittleEndian.Uint16(b[4:]),
		Interval:        b[6],
	}, nil
}

// Encode renders the descriptor back into its 7 byte wire form.
func (e Endpoint) Encode() []byte {
	b := make([]byte, EndpointSize)
	b[0] = e.Length
	b[1] = e.DescriptorType
	b[2] = e.EndpointAddress
	b[3] = e.Attributes
	binary.LittleEndian.PutUint16(b[4:], e.MaxPacketSize)
	b[6] = e.Interval
	return b
}

// In reports whether the endpoint moves data device to host.
func (e Endpoint) In() bool {
	return e.EndpointAddress&0x80 != 0
}

// Number returns the endpoint number without the direction bit.
func (e Endpoint) Number() int {
	return int(e.EndpointAddress & 0x0f)
}
