// Package descriptor parses USB descriptors out of raw kernel buffers.
//
// Descriptor data originates on the device side of the bus, so nothing in a
// buffer can be trusted. Every parse and walk here is bounds checked and
// total: arbitrary input terminates, at worst as "not found" or an error.
package descriptor

// Descriptor type codes from the USB specification.
const (
	TypeDevice           = 0x01
	TypeConfig           = 0x02
	TypeString           = 0x03
	TypeInterface        = 0x04
	TypeEndpoint         = 0x05
	TypeOtherSpeedConfig = 0x07
)

// Fixed descriptor sizes in bytes.
const (
	DeviceSize     = 18
	ConfigSize     = 9
	InterfaceSize  = 9
	Interface2Size = 11
	EndpointSize   = 7
)

// inBounds reports whether a descriptor starting at pos fits inside b: the
// two byte header must fit, the declared length must fit, and a zero
// declared length is rejected so walks cannot loop.
func inBounds(b []byte, pos int) bool {
	if pos < 0 || pos+2 > len(b) {
		return false
	}
	length := int(b[pos])
	if length == 0 {
		return false
	}
	return pos+length <= len(b)
}
