// Package usbioctl defines the control requests the Windows hub and host
// controller drivers answer, and codecs for their packed wire structures.
//
// The kernel structures are 1 byte packed, so every layout here spells out
// its offsets explicitly and encodes little endian. The codecs behave the
// same on every platform, which lets fakes script byte exact kernel replies.
package usbioctl

import "encoding/binary"

// CTL_CODE(FILE_DEVICE_USB, function, METHOD_BUFFERED, FILE_ANY_ACCESS)
// collapses to fileDeviceUSB<<16 | function<<2 for every code used here.
const fileDeviceUSB = 0x22

// Control codes answered by hub device handles.
const (
	GetNodeInformation               uint32 = fileDeviceUSB<<16 | 258<<2
	GetNodeConnectionInformation     uint32 = fileDeviceUSB<<16 | 259<<2
	GetDescriptorFromNodeConnection  uint32 = fileDeviceUSB<<16 | 260<<2
	GetNodeConnectionName            uint32 = fileDeviceUSB<<16 | 261<<2
	GetNodeConnectionDriverKeyName   uint32 = fileDeviceUSB<<16 | 264<<2
	GetNodeConnectionInformationEx   uint32 = fileDeviceUSB<<16 | 274<<2
	GetHubCapabilitiesEx             uint32 = fileDeviceUSB<<16 | 276<<2
	GetHubInformationEx              uint32 = fileDeviceUSB<<16 | 277<<2
	GetPortConnectorProperties       uint32 = fileDeviceUSB<<16 | 278<<2
	GetNodeConnectionInformationExV2 uint32 = fileDeviceUSB<<16 | 279<<2
)

// Control codes answered by host controller device handles. GetRootHubName
// shares its numeric value with GetNodeInformation; the target handle
// selects the meaning.
const (
	GetRootHubName      uint32 = fileDeviceUSB<<16 | 258<<2
	GetHcdDriverKeyName uint32 = fileDeviceUSB<<16 | 265<<2
	UserRequest         uint32 = fileDeviceUSB<<16 | 266<<2
)

// EncodeConnectionRequest returns a zeroed request buffer of the given size
// with the connection index in the leading ULONG. Most hub port queries
// take this shape.
func EncodeConnectionRequest(connectionIndex uint32, size int) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint32(b, connectionIndex)
	return b
}
