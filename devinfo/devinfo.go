// Package devinfo reads the Windows device information registry: one
// Record per installed device, carrying the driver key and hardware ids
// the topology walk correlates against.
//
// The live registry is only reachable on Windows; everything above the
// Source interface is portable, and StaticSource serves scripted record
// sets anywhere.
package devinfo

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Interface class GUIDs of the device kinds the topology walk opens.
var (
	// GUIDDeviceInterfaceUSBDevice marks records reachable as plain USB
	// devices.
	GUIDDeviceInterfaceUSBDevice = uuid.MustParse("a5dcbf10-6530-11d2-901f-00c04fb951ed")

	// GUIDDeviceInterfaceUSBHub marks records reachable as USB hubs.
	GUIDDeviceInterfaceUSBHub = uuid.MustParse("f18a0e88-c30c-11d0-8815-00a0c906bed8")

	// GUIDDeviceInterfaceUSBHostController marks records reachable as USB
	// host controllers.
	GUIDDeviceInterfaceUSBHostController = uuid.MustParse("3abf6f2d-71c4-462a-8a92-1e6861e6af27")
)

// PowerState is a device power state as the configuration manager reports
// it.
type PowerState uint32

// Device power states.
const (
	PowerStateUnspecified PowerState = iota
	PowerStateD0
	PowerStateD1
	PowerStateD2
	PowerStateD3
)

func (p PowerState) String() string {
	switch p {
	case PowerStateUnspecified:
		return "unspecified"
	case PowerStateD0:
		return "D0"
	case PowerStateD1:
		return "D1"
	case PowerStateD2:
		return "D2"
	case PowerStateD3:
		return "D3"
	default:
		return "unknown"
	}
}

// Record is the registry's view of one installed device. HardwareID holds
// the first entry of the hardware id list.
type Record struct {
	HardwareID   string
	DriverKey    string
	Description  string
	FriendlyName string
	Manufacturer string
	DevicePath   string
	SetupClass   uuid.UUID
	PowerState   PowerState
}

// HasDriverKey reports whether the record carries a driver key to
// correlate against.
func (r Record) HasDriverKey() bool {
	return r.DriverKey != ""
}

// MatchesHardwareID reports whether the record's hardware id contains
// pattern, ignoring case.
func (r Record) MatchesHardwareID(pattern string) bool {
	return strings.Contains(strings.ToLower(r.HardwareID), strings.ToLower(pattern))
}

// Filter selects which registry records a Source lists, mirroring the
// class devs query flags.
type Filter struct {
	// Class is the device setup class to list, or with DeviceInterface the
	// device interface class. Ignored with AllClasses.
	Class uuid.UUID

	// DeviceInterface reads Class as an interface class and resolves each
	// record's interface device path.
	DeviceInterface bool

	// AllClasses lists devices of every class.
	AllClasses bool

	// PresentOnly lists only devices currently present.
	PresentOnly bool
}

// Source lists registry records.
type Source interface {
	Records(filter Filter) ([]Record, error)
	Close() error
}

// EnumError is a registry traversal failure carrying the OS error code.
type EnumError struct {
	Op   string
	Code uint32
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%s failed with code %d", e.Op, e.Code)
}
