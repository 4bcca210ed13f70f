//go:build windows

package devinfo

import (
	"encoding/binary"
	"syscall"
	"unsafe"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"golang.org/x/sys/windows"

	"go.viam.com/usbtree/utils"
)

var (
	modsetupapi = windows.NewLazySystemDLL("setupapi.dll")

	procSetupDiGetClassDevsW              = modsetupapi.NewProc("SetupDiGetClassDevsW")
	procSetupDiDestroyDeviceInfoList      = modsetupapi.NewProc("SetupDiDestroyDeviceInfoList")
	procSetupDiEnumDeviceInfo             = modsetupapi.NewProc("SetupDiEnumDeviceInfo")
	procSetupDiGetDeviceRegistryPropertyW = modsetupapi.NewProc("SetupDiGetDeviceRegistryPropertyW")
	procSetupDiEnumDeviceInterfaces       = modsetupapi.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW  = modsetupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")
)

// SetupDiGetClassDevs flags.
const (
	digcfPresent         = 0x00000002
	digcfAllClasses      = 0x00000004
	digcfDeviceInterface = 0x00000010
)

// Device registry property codes.
const (
	spdrpDeviceDesc      = 0x00000000
	spdrpHardwareID      = 0x00000001
	spdrpClassGUID       = 0x00000008
	spdrpDriver          = 0x00000009
	spdrpMfg             = 0x0000000b
	spdrpFriendlyName    = 0x0000000c
	spdrpDevicePowerData = 0x0000001e
)

const invalidHandleValue = ^uintptr(0)

// devInfoData is SP_DEVINFO_DATA.
type devInfoData struct {
	size      uint32
	classGUID windows.GUID
	devInst   uint32
	reserved  uintptr
}

// deviceInterfaceData is SP_DEVICE_INTERFACE_DATA.
type deviceInterfaceData struct {
	size      uint32
	classGUID windows.GUID
	flags     uint32
	reserved  uintptr
}

// systemSource reads records from the live device information registry.
type systemSource struct {
	logger golog.Logger
}

// NewSystemSource returns a Source over the live device information
// registry.
func NewSystemSource(logger golog.Logger) (Source, error) {
	return &systemSource{logger: logger}, nil
}

// Close is a no-op; each Records call opens and destroys its own device
// information set.
func (s *systemSource) Close() error {
	return nil
}

// Records lists the registry records matching filter. A failure to open or
// walk the device information set returns an EnumError; per-record
// property reads treat failures as absent values.
func (s *systemSource) Records(filter Filter) ([]Record, error) {
	var flags uintptr
	if filter.PresentOnly {
		flags |= digcfPresent
	}
	if filter.AllClasses {
		flags |= digcfAllClasses
	}
	if filter.DeviceInterface {
		flags |= digcfDeviceInterface
	}

	var guidPtr uintptr
	guid := windowsGUID(filter.Class)
	if filter.Class != uuid.Nil || filter.DeviceInterface {
		guidPtr = uintptr(unsafe.Pointer(&guid))
	}

	set, _, callErr := procSetupDiGetClassDevsW.Call(guidPtr, 0, 0, flags)
	if set == invalidHandleValue {
		return nil, &EnumError{Op: "SetupDiGetClassDevs", Code: errnoCode(callErr)}
	}
	defer func() {
		_, _, _ = procSetupDiDestroyDeviceInfoList.Call(set)
	}()

	var records []Record
	for index := uintptr(0); ; index++ {
		var data devInfoData
		data.size = uint32(unsafe.Sizeof(data))
		ret, _, callErr := procSetupDiEnumDeviceInfo.Call(set, index, uintptr(unsafe.Pointer(&data)))
		if ret == 0 {
			code := errnoCode(callErr)
			if code == uint32(windows.ERROR_NO_MORE_ITEMS) {
				break
			}
			return nil, &EnumError{Op: "SetupDiEnumDeviceInfo", Code: code}
		}
		records = append(records, s.readRecord(set, &data, filter))
	}
	return records, nil
}

func (s *systemSource) readRecord(set uintptr, data *devInfoData, filter Filter) Record {
	record := Record{
		HardwareID:   s.stringProperty(set, data, spdrpHardwareID),
		DriverKey:    s.stringProperty(set, data, spdrpDriver),
		Description:  s.stringProperty(set, data, spdrpDeviceDesc),
		FriendlyName: s.stringProperty(set, data, spdrpFriendlyName),
		Manufacturer: s.stringProperty(set, data, spdrpMfg),
		PowerState:   s.powerState(set, data),
	}
	if raw := s.stringProperty(set, data, spdrpClassGUID); raw != "" {
		id, err := utils.ParseWindowsGUID(raw)
		if err != nil {
			s.logger.Debugw("unparseable setup class", "guid", raw, "error", err)
		} else {
			record.SetupClass = id
		}
	}
	if filter.DeviceInterface {
		record.DevicePath = s.interfacePath(set, data, filter.Class)
	}
	return record
}

// stringProperty reads one registry property as a string, two phase: probe
// for the size, then fetch. Absent properties come back empty. Multi-sz
// properties such as the hardware id list yield their first entry.
func (s *systemSource) stringProperty(set uintptr, data *devInfoData, property uintptr) string {
	var needed uint32
	ret, _, callErr := procSetupDiGetDeviceRegistryPropertyW.Call(
		set, uintptr(unsafe.Pointer(data)), property,
		0, 0, 0, uintptr(unsafe.Pointer(&needed)))
	if ret == 0 && (errnoCode(callErr) != uint32(windows.ERROR_INSUFFICIENT_BUFFER) || needed == 0) {
		return ""
	}
	buf := make([]byte, needed)
	ret, _, _ = procSetupDiGetDeviceRegistryPropertyW.Call(
		set, uintptr(unsafe.Pointer(data)), property,
		0, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), 0)
	if ret == 0 {
		return ""
	}
	value, err := utils.DecodeUTF16LEUntilNul(buf)
	if err != nil {
		s.logger.Debugw("undecodable registry property", "property", property, "error", err)
		return ""
	}
	return value
}

// powerState reads the most recent power state out of the CM_POWER_DATA
// property.
func (s *systemSource) powerState(set uintptr, data *devInfoData) PowerState {
	var needed uint32
	ret, _, callErr := procSetupDiGetDeviceRegistryPropertyW.Call(
		set, uintptr(unsafe.Pointer(data)), spdrpDevicePowerData,
		0, 0, 0, uintptr(unsafe.Pointer(&needed)))
	if ret == 0 && (errnoCode(callErr) != uint32(windows.ERROR_INSUFFICIENT_BUFFER) || needed < 8) {
		return PowerStateUnspecified
	}
	buf := make([]byte, needed)
	ret, _, _ = procSetupDiGetDeviceRegistryPropertyW.Call(
		set, uintptr(unsafe.Pointer(data)), spdrpDevicePowerData,
		0, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), 0)
	if ret == 0 {
		return PowerStateUnspecified
	}
	state := PowerState(binary.LittleEndian.Uint32(buf[4:]))
	if state > PowerStateD3 {
		return PowerStateUnspecified
	}
	return state
}

// interfacePath resolves the device path of the record's interface under
// class, empty when the record exposes none.
func (s *systemSource) interfacePath(set uintptr, data *devInfoData, class uuid.UUID) string {
	guid := windowsGUID(class)
	var iface deviceInterfaceData
	iface.size = uint32(unsafe.Sizeof(iface))
	ret, _, _ := procSetupDiEnumDeviceInterfaces.Call(
		set, uintptr(unsafe.Pointer(data)), uintptr(unsafe.Pointer(&guid)),
		0, uintptr(unsafe.Pointer(&iface)))
	if ret == 0 {
		return ""
	}
	var needed uint32
	_, _, _ = procSetupDiGetDeviceInterfaceDetailW.Call(
		set, uintptr(unsafe.Pointer(&iface)),
		0, 0, uintptr(unsafe.Pointer(&needed)), 0)
	if needed <= 4 {
		return ""
	}
	buf := make([]byte, needed)
	// cbSize of SP_DEVICE_INTERFACE_DETAIL_DATA_W counts the DWORD and one
	// wide char, padded to pointer alignment.
	detailSize := uint32(6)
	if unsafe.Sizeof(uintptr(0)) == 8 {
		detailSize = 8
	}
	binary.LittleEndian.PutUint32(buf, detailSize)
	ret, _, _ = procSetupDiGetDeviceInterfaceDetailW.Call(
		set, uintptr(unsafe.Pointer(&iface)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), 0, 0)
	if ret == 0 {
		return ""
	}
	path, err := utils.DecodeUTF16LEUntilNul(buf[4:])
	if err != nil {
		s.logger.Debugw("undecodable interface path", "error", err)
		return ""
	}
	return path
}

// windowsGUID converts a uuid.UUID to the registry's mixed endian GUID
// layout.
func windowsGUID(id uuid.UUID) windows.GUID {
	var guid windows.GUID
	guid.Data1 = binary.BigEndian.Uint32(id[0:4])
	guid.Data2 = binary.BigEndian.Uint16(id[4:6])
	guid.Data3 = binary.BigEndian.Uint16(id[6:8])
	copy(guid.Data4[:], id[8:16])
	return guid
}

func errnoCode(err error) uint32 {
	if errno, ok := err.(syscall.Errno); ok {
		return uint32(errno)
	}
	return 0
}
