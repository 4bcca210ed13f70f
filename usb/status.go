package usb

// ConnectionStatus is the state of a single hub port as reported by the
// hub driver.
type ConnectionStatus uint32

// Port connection states. The values match what the hub driver reports and
// must not be reordered.
const (
	NoDeviceConnected ConnectionStatus = iota
	DeviceConnected
	DeviceFailedEnumeration
	DeviceGeneralFailure
	DeviceCausedOvercurrent
	DeviceNotEnoughPower
	DeviceNotEnoughBandwidth
	DeviceHubNestedTooDeeply
	DeviceInLegacyHub
	DeviceEnumerating
	DeviceReset
)

// Connected reports whether a functioning device is attached to the port.
func (s ConnectionStatus) Connected() bool {
	return s == DeviceConnected
}

func (s ConnectionStatus) String() string {
	switch s {
	case NoDeviceConnected:
		return "NoDeviceConnected"
	case DeviceConnected:
		return "DeviceConnected"
	case DeviceFailedEnumeration:
		return "DeviceFailedEnumeration"
	case DeviceGeneralFailure:
		return "DeviceGeneralFailure"
	case DeviceCausedOvercurrent:
		return "DeviceCausedOvercurrent"
	case DeviceNotEnoughPower:
		return "DeviceNotEnoughPower"
	case DeviceNotEnoughBandwidth:
		return "DeviceNotEnoughBandwidth"
	case DeviceHubNestedTooDeeply:
		return "DeviceHubNestedTooDeeply"
	case DeviceInLegacyHub:
		return "DeviceInLegacyHub"
	case DeviceEnumerating:
		return "DeviceEnumerating"
	case DeviceReset:
		return "DeviceReset"
	default:
		return "unknown"
	}
}
