package usbioctl

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/descriptor"
	"go.viam.com/usbtree/utils"
)

// PipeInfo describes one open pipe on a connected device.
type PipeInfo struct {
	EndpointDescriptor descriptor.Endpoint
	ScheduleOffset     uint32
}

// PipeInfoSize is the wire size of one pipe entry.
const PipeInfoSize = 11

// NodeConnectionInformationEx is the reply to a port connection query: a
// fixed part followed by one pipe entry per open pipe.
type NodeConnectionInformationEx struct {
	ConnectionIndex           uint32
	DeviceDescriptor          descriptor.Device
	CurrentConfigurationValue uint8
	Speed                     usb.Speed
	DeviceIsHub               bool
	DeviceAddress             uint16
	NumberOfOpenPipes         uint32
	ConnectionStatus          usb.ConnectionStatus
	PipeList                  []PipeInfo
}

// NodeConnectionInformationExFixedSize is the wire size before the pipe
// list.
const NodeConnectionInformationExFixedSize = 35

func decodeConnection(b []byte, legacySpeed bool) (NodeConnectionInformationEx, error) {
	if len(b) < NodeConnectionInformationExFixedSize {
		return NodeConnectionInformationEx{}, errors.Errorf("connection information needs %d bytes; got %d",
			NodeConnectionInformationExFixedSize, len(b))
	}
	dev, err := descriptor.ParseDevice(b[4:22])
	if err != nil {
		return NodeConnectionInformationEx{}, err
	}
	info := NodeConnectionInformationEx{
		ConnectionIndex:           binary.LittleEndian.Uint32(b),
		DeviceDescriptor:          dev,
		CurrentConfigurationValue: b[22],
		DeviceIsHub:               b[24] != 0,
		DeviceAddress:             binary.LittleEndian.Uint16(b[25:]),
		NumberOfOpenPipes:         binary.LittleEndian.Uint32(b[27:]),
		ConnectionStatus:          usb.ConnectionStatus(binary.LittleEndian.Uint32(b[31:])),
	}
	if legacySpeed {
		if b[23] != 0 {
			info.Speed = usb.SpeedLow
		} else {
			info.Speed = usb.SpeedFull
		}
	} else {
		info.Speed = usb.Speed(b[23])
	}
	pipes := int(info.NumberOfOpenPipes)
	if pipes > 0 {
		if NodeConnectionInformationExFixedSize+pipes*PipeInfoSize > len(b) {
			return NodeConnectionInformationEx{}, errors.Errorf("reply claims %d open pipes but only %d bytes follow",
				pipes, len(b)-NodeConnectionInformationExFixedSize)
		}
		info.PipeList = make([]PipeInfo, 0, pipes)
		for i := 0; i < pipes; i++ {
			off := NodeConnectionInformationExFixedSize + i*PipeInfoSize
			ep, err := descriptor.ParseEndpoint(b[off : off+descriptor.EndpointSize])
			if err != nil {
				return NodeConnectionInformationEx{}, err
			}
			info.PipeList = append(info.PipeList, PipeInfo{
				EndpointDescriptor: ep,
				ScheduleOffset:     binary.LittleEndian.Uint32(b[off+descriptor.EndpointSize:]),
			})
		}
	}
	return info, nil
}

// DecodeNodeConnectionInformationEx parses an extended reply. The buffer
// must hold every pipe the reply claims is open.
func DecodeNodeConnectionInformationEx(b []byte) (NodeConnectionInformationEx, error) {
	return decodeConnection(b, false)
}

// DecodeNodeConnectionInformation parses a legacy reply, which reports only
// a low speed flag; full speed is assumed otherwise.
func DecodeNodeConnectionInformation(b []byte) (NodeConnectionInformationEx, error) {
	return decodeConnection(b, true)
}

// Encode renders the reply in extended form, pipe list included.
func (n NodeConnectionInformationEx) Encode() []byte {
	b := make([]byte, NodeConnectionInformationExFixedSize+len(n.PipeList)*PipeInfoSize)
	binary.LittleEndian.PutUint32(b, n.ConnectionIndex)
	copy(b[4:22], n.DeviceDescriptor.Encode())
	b[22] = n.CurrentConfigurationValue
	b[23] = uint8(n.Speed)
	if n.DeviceIsHub {
		b[24] = 1
	}
	binary.LittleEndian.PutUint16(b[25:], n.DeviceAddress)
	binary.LittleEndian.PutUint32(b[27:], n.NumberOfOpenPipes)
	binary.LittleEndian.PutUint32(b[31:], uint32(n.ConnectionStatus))
	for i, pipe := range n.PipeList {
		off := NodeConnectionInformationExFixedSize + i*PipeInfoSize
		copy(b[off:], pipe.EndpointDescriptor.Encode())
		binary.LittleEndian.PutUint32(b[off+descriptor.EndpointSize:], pipe.ScheduleOffset)
	}
	return b
}

// EncodeLegacy renders the reply in the legacy form with its low speed
// flag.
func (n NodeConnectionInformationEx) EncodeLegacy() []byte {
	b := n.Encode()
	if n.Speed == usb.SpeedLow {
		b[23] = 1
	} else {
		b[23] = 0
	}
	return b
}

// Protocol bits in a V2 connection reply.
const (
	ProtocolUsb110 uint32 = 1 << iota
	ProtocolUsb200
	ProtocolUsb300
)

// Flag bits in a V2 connection reply.
const (
	DeviceOperatingAtSuperSpeedOrHigher uint32 = 1 << iota
	DeviceSuperSpeedCapableOrHigher
	DeviceOperatingAtSuperSpeedPlusOrHigher
	DeviceSuperSpeedPlusCapableOrHigher
)

// NodeConnectionInformationExV2 is the reply to the V2 connection query,
// which reports SuperSpeed operation the extended query cannot express.
type NodeConnectionInformationExV2 struct {
	ConnectionIndex       uint32
	Length                uint32
	SupportedUsbProtocols uint32
	Flags                 uint32
}

// NodeConnectionInformationExV2Size is the wire size of both the request
// and the reply.
const NodeConnectionInformationExV2Size = 16

// OperatingAtSuperSpeed reports whether the device is running at SuperSpeed
// or better.
func (v NodeConnectionInformationExV2) OperatingAtSuperSpeed() bool {
	return v.Flags&(DeviceOperatingAtSuperSpeedOrHigher|DeviceOperatingAtSuperSpeedPlusOrHigher) != 0
}

// EncodeNodeConnectionInformationExV2Request builds the V2 request: the
// caller announces its buffer length and that it understands USB 3.0.
func EncodeNodeConnectionInformationExV2Request(connectionIndex uint32) []byte {
	b := make([]byte, NodeConnectionInformationExV2Size)
	binary.LittleEndian.PutUint32(b, connectionIndex)
	binary.LittleEndian.PutUint32(b[4:], NodeConnectionInformationExV2Size)
	binary.LittleEndian.PutUint32(b[8:], ProtocolUsb300)
	return b
}

// DecodeNodeConnectionInformationExV2 parses a V2 reply.
func DecodeNodeConnectionInformationExV2(b []byte) (NodeConnectionInformationExV2, error) {
	if len(b) < NodeConnectionInformationExV2Size {
		return NodeConnectionInformationExV2{}, errors.Errorf("V2 connection information needs %d bytes; got %d",
			NodeConnectionInformationExV2Size, len(b))
	}
	return NodeConnectionInformationExV2{
		ConnectionIndex:       binary.LittleEndian.Uint32(b),
		Length:                binary.LittleEndian.Uint32(b[4:]),
		SupportedUsbProtocols: binary.LittleEndian.Uint32(b[8:]),
		Flags:                 binary.LittleEndian.Uint32(b[12:]),
	}, nil
}

// Encode renders the reply back into its wire form.
func (v NodeConnectionInformationExV2) Encode() []byte {
	b := make([]byte, NodeConnectionInformationExV2Size)
	binary.LittleEndian.PutUint32(b, v.ConnectionIndex)
	binary.LittleEndian.PutUint32(b[4:], v.Length)
	binary.LittleEndian.PutUint32(b[8:], v.SupportedUsbProtocols)
	binary.LittleEndian.PutUint32(b[12:], v.Flags)
	return b
}

// Port property bits of a port connector reply.
const (
	PortIsUserConnectable uint32 = 1 << iota
	PortIsDebugCapable
	PortHasMultipleCompanions
	PortConnectorIsTypeC
)

// PortConnectorProperties is the reply to a port connector query. The
// companion hub name is fetched in a second phase sized by ActualLength.
type PortConnectorProperties struct {
	ConnectionIndex              uint32
	ActualLength                 uint32
	Properties                   uint32
	CompanionIndex               uint16
	CompanionPortNumber          uint16
	CompanionHubSymbolicLinkName string
}

// PortConnectorPropertiesFixedSize is the probe size of the reply.
const PortConnectorPropertiesFixedSize = 18

// connector name bytes start after the companion port number.
const portConnectorNameOffset = 16

// DecodePortConnectorProperties parses a reply, companion name included
// when the buffer carries it.
func DecodePortConnectorProperties(b []byte) (PortConnectorProperties, error) {
	if len(b) < PortConnectorPropertiesFixedSize {
		return PortConnectorProperties{}, errors.Errorf("port connector properties needs %d bytes; got %d",
			PortConnectorPropertiesFixedSize, len(b))
	}
	p := PortConnectorProperties{
		ConnectionIndex:     binary.LittleEndian.Uint32(b),
		ActualLength:        binary.LittleEndian.Uint32(b[4:]),
		Properties:          binary.LittleEndian.Uint32(b[8:]),
		CompanionIndex:      binary.LittleEndian.Uint16(b[12:]),
		CompanionPortNumber: binary.LittleEndian.Uint16(b[14:]),
	}
	nameEnd := int(p.ActualLength)
	if nameEnd > len(b) {
		nameEnd = len(b)
	}
	if nameEnd > portConnectorNameOffset {
		name, err := utils.DecodeUTF16LEUntilNul(b[portConnectorNameOffset:nameEnd])
		if err != nil {
			return PortConnectorProperties{}, err
		}
		p.CompanionHubSymbolicLinkName = name
	}
	return p, nil
}

// Encode renders the full reply; ActualLength is computed from the name.
func (p PortConnectorProperties) Encode() []byte {
	name := utils.EncodeUTF16LE(p.CompanionHubSymbolicLinkName)
	total := portConnectorNameOffset + len(name) + 2
	if total < PortConnectorPropertiesFixedSize {
		total = PortConnectorPropertiesFixedSize
	}
	b := make([]byte, total)
	binary.LittleEndian.PutUint32(b, p.ConnectionIndex)
	binary.LittleEndian.PutUint32(b[4:], uint32(total))
	binary.LittleEndian.PutUint32(b[8:], p.Properties)
	binary.LittleEndian.PutUint16(b[12:], p.CompanionIndex)
	binary.LittleEndian.PutUint16(b[14:], p.CompanionPortNumber)
	copy(b[portConnectorNameOffset:], name)
	return b
}
