package usb

// Limits on what a single device or hub can report through the hub driver,
// from the USB specification.
const (
	// MaxEndpointsPerDevice is the most endpoints a configuration can open
	// in one direction.
	MaxEndpointsPerDevice = 30

	// MaxPortsPerHub bounds the port count a hub may claim. The hub
	// descriptor stores the count in a single byte.
	MaxPortsPerHub = 255

	// MaxStringDescriptorSize is the largest possible string descriptor,
	// length byte included.
	MaxStringDescriptorSize = 255

	// DefaultLanguageID is US English, the fallback when a device reports
	// no supported language list.
	DefaultLanguageID = 0x0409
)
