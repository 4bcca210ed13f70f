package usb

// Speed is the bus speed a device negotiated with its hub.
type Speed uint8

// Bus speeds as reported by the hub driver. SpeedSuper covers SuperSpeed
// and SuperSpeedPlus operation.
const (
	SpeedLow Speed = iota
	SpeedFull
	SpeedHigh
	SpeedSuper
)

func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "low"
	case SpeedFull:
		return "full"
	case SpeedHigh:
		return "high"
	case SpeedSuper:
		return "super"
	default:
		return "unknown"
	}
}
