package usbioctl

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// NodeType tells a plain hub apart from the parent node of a composite
// device.
type NodeType uint32

// Node types as the hub driver reports them.
const (
	NodeTypeHub NodeType = iota
	NodeTypeMIParent
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeHub:
		return "UsbHub"
	case NodeTypeMIParent:
		return "UsbMIParent"
	default:
		return "unknown"
	}
}

// HubDescriptor is the USB 2.0 hub descriptor embedded in a node
// information reply.
type HubDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	NumberOfPorts      uint8
	HubCharacteristics uint16
	PowerOnToPowerGood uint8
	HubControlCurrent  uint8
	RemoveAndPowerMask [64]byte
}

// NodeInformation is the reply to a node information query. Hub nodes carry
// a hub descriptor and a power mode; multi interface parents carry an
// interface count instead.
type NodeInformation struct {
	NodeType           NodeType
	HubDescriptor      HubDescriptor
	HubIsBusPowered    bool
	NumberOfInterfaces uint32
}

// NodeInformationSize is the wire size of a node information reply.
const NodeInformationSize = 76

// PortCount returns the hub's port count, zero for non hub nodes.
func (n NodeInformation) PortCount() int {
	if n.NodeType != NodeTypeHub {
		return 0
	}
	return int(n.HubDescriptor.NumberOfPorts)
}

// DecodeNodeInformation parses a node information reply.
func DecodeNodeInformation(b []byte) (NodeInformation, error) {
	if len(b) < NodeInformationSize {
		return NodeInformation{}, errors.Errorf("node information needs %d bytes; got %d", NodeInformationSize, len(b))
	}
	info := NodeInformation{NodeType: NodeType(binary.LittleEndian.Uint32(b))}
	if info.NodeType == NodeTypeMIParent {
		info.NumberOfInterfaces = binary.LittleEndian.Uint32(b[4:])
		return info, nil
	}
	d := &info.HubDescriptor
	d.Length = b[4]
	d.DescriptorType = b[5]
	d.NumberOfPorts = b[6]
	d.HubCharacteristics = binary.LittleEndian.Uint16(b[7:])
	d.PowerOnToPowerGood = b[9]
	d.HubControlCurrent = b[10]
	copy(d.RemoveAndPowerMask[:], b[11:75])
	info.HubIsBusPowered = b[75] != 0
	return info, nil
}

// Encode renders the reply back into its wire form.
func (n NodeInformation) Encode() []byte {
	b := make([]byte, NodeInformationSize)
	binary.LittleEndian.PutUint32(b, uint32(n.NodeType))
	if n.NodeType == NodeTypeMIParent {
		binary.LittleEndian.PutUint32(b[4:], n.NumberOfInterfaces)
		return b
	}
	d := n.HubDescriptor
	b[4] = d.Length
	b[5] = d.DescriptorType
	b[6] = d.NumberOfPorts
	binary.LittleEndian.PutUint16(b[7:], d.HubCharacteristics)
	b[9] = d.PowerOnToPowerGood
	b[10] = d.HubControlCurrent
	copy(b[11:75], d.RemoveAndPowerMask[:])
	if n.HubIsBusPowered {
		b[75] = 1
	}
	return b
}

// HubType classifies a hub in an extended information reply.
type HubType uint32

// Hub types as the hub driver reports them.
const (
	HubTypeRoot  HubType = 1
	HubTypeUsb20 HubType = 2
	HubTypeUsb30 HubType = 3
)

func (t HubType) String() string {
	switch t {
	case HubTypeRoot:
		return "UsbRootHub"
	case HubTypeUsb20:
		return "Usb20Hub"
	case HubTypeUsb30:
		return "Usb30Hub"
	default:
		return "unknown"
	}
}

// HubInformationEx is the reply to an extended hub information query. Older
// hub drivers reject the query; Supported records whether this hub
// answered. The descriptor union at the tail is kept raw.
type HubInformationEx struct {
	HubType           HubType
	HighestPortNumber uint16
	Descriptor        [71]byte
	Supported         bool
}

// HubInformationExSize is the wire size of the reply.
const HubInformationExSize = 77

// DecodeHubInformationEx parses an extended hub information reply. The
// Supported flag is left for the caller, which knows whether the query
// went through.
func DecodeHubInformationEx(b []byte) (HubInformationEx, error) {
	if len(b) < HubInformationExSize {
		return HubInformationEx{}, errors.Errorf("hub information needs %d bytes; got %d", HubInformationExSize, len(b))
	}
	info := HubInformationEx{
		HubType:           HubType(binary.LittleEndian.Uint32(b)),
		HighestPortNumber: binary.LittleEndian.Uint16(b[4:]),
	}
	copy(info.Descriptor[:], b[6:HubInformationExSize])
	return info, nil
}

// Encode renders the reply back into its wire form.
func (h HubInformationEx) Encode() []byte {
	b := make([]byte, HubInformationExSize)
	binary.LittleEndian.PutUint32(b, uint32(h.HubType))
	binary.LittleEndian.PutUint16(b[4:], h.HighestPortNumber)
	copy(b[6:], h.Descriptor[:])
	return b
}

// Capability flag bits of an extended hub capabilities reply.
const (
	HubCapHighSpeedCapable uint32 = 1 << iota
	HubCapHighSpeed
	HubCapMultiTTCapable
	HubCapMultiTT
	HubCapRoot
	HubCapArmedWakeOnConnect
	HubCapBusPowered
)

// HubCapabilitiesEx is the reply to an extended hub capabilities query.
// Supported records whether the hub answered at all.
type HubCapabilitiesEx struct {
	CapabilityFlags uint32
	Supported       bool
}

// HubCapabilitiesExSize is the wire size of the reply.
const HubCapabilitiesExSize = 4

// IsRoot reports whether the hub is a root hub.
func (c HubCapabilitiesEx) IsRoot() bool {
	return c.CapabilityFlags&HubCapRoot != 0
}

// IsBusPowered reports whether the hub draws power from the bus.
func (c HubCapabilitiesEx) IsBusPowered() bool {
	return c.CapabilityFlags&HubCapBusPowered != 0
}

// DecodeHubCapabilitiesEx parses an extended hub capabilities reply.
func DecodeHubCapabilitiesEx(b []byte) (HubCapabilitiesEx, error) {
	if len(b) < HubCapabilitiesExSize {
		return HubCapabilitiesEx{}, errors.Errorf("hub capabilities needs %d bytes; got %d", HubCapabilitiesExSize, len(b))
	}
	return HubCapabilitiesEx{CapabilityFlags: binary.LittleEndian.Uint32(b)}, nil
}

// Encode renders the reply back into its wire form.
func (c HubCapabilitiesEx) Encode() []byte {
	b := make([]byte, HubCapabilitiesExSize)
	binary.LittleEndian.PutUint32(b, c.CapabilityFlags)
	return b
}
