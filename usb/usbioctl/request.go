package usbioctl

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/descriptor"
)

// SetupPacket is the 8 byte control setup embedded in a descriptor request.
// The hub driver fills in the request direction and recipient itself.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// DescriptorRequestHeaderSize is the wire size of a descriptor request
// before the payload.
const DescriptorRequestHeaderSize = 12

// EncodeDescriptorRequest builds a descriptor fetch request with room for
// setup.Length payload bytes after the header.
func EncodeDescriptorRequest(connectionIndex uint32, setup SetupPacket) []byte {
	b := make([]byte, DescriptorRequestHeaderSize+int(setup.Length))
	binary.LittleEndian.PutUint32(b, connectionIndex)
	b[4] = setup.RequestType
	b[5] = setup.Request
	binary.LittleEndian.PutUint16(b[6:], setup.Value)
	binary.LittleEndian.PutUint16(b[8:], setup.Index)
	binary.LittleEndian.PutUint16(b[10:], setup.Length)
	return b
}

// ConfigDescriptorSetup is the setup packet for fetching configuration
// descriptor index with a payload of length bytes.
func ConfigDescriptorSetup(index uint8, length uint16) SetupPacket {
	return SetupPacket{
		Value:  uint16(descriptor.TypeConfig)<<8 | uint16(index),
		Length: length,
	}
}

// StringDescriptorSetup is the setup packet for fetching string descriptor
// index in the given language. Index zero with language zero asks for the
// supported language list.
func StringDescriptorSetup(index uint8, languageID uint16) SetupPacket {
	return SetupPacket{
		Value:  uint16(descriptor.TypeString)<<8 | uint16(index),
		Index:  languageID,
		Length: usb.MaxStringDescriptorSize,
	}
}

// UserGetControllerInfo0 is the USBUSER operation that reports controller
// identity.
const UserGetControllerInfo0 = 0x00000001

// Wire sizes of a USBUSER controller identity exchange.
const (
	UserRequestHeaderSize = 16
	ControllerInfo0Size   = 24
)

// ControllerInfo0 is the identity block of a host controller: its PCI ids
// and how many root ports it drives.
type ControllerInfo0 struct {
	PciVendorID       uint32
	PciDeviceID       uint32
	PciRevision       uint32
	NumberOfRootPorts uint32
	ControllerFlavor  uint32
	HcFeatureFlags    uint32
}

// EncodeControllerInfoRequest builds the USBUSER request for controller
// identity.
func EncodeControllerInfoRequest() []byte {
	b := make([]byte, UserRequestHeaderSize+ControllerInfo0Size)
	binary.LittleEndian.PutUint32(b, UserGetControllerInfo0)
	binary.LittleEndian.PutUint32(b[8:], uint32(len(b)))
	return b
}

// DecodeControllerInfo parses the reply to a controller identity request.
func DecodeControllerInfo(b []byte) (ControllerInfo0, error) {
	if len(b) < UserRequestHeaderSize+ControllerInfo0Size {
		return ControllerInfo0{}, errors.Errorf("controller info needs %d bytes; got %d",
			UserRequestHeaderSize+ControllerInfo0Size, len(b))
	}
	p := b[UserRequestHeaderSize:]
	return ControllerInfo0{
		PciVendorID:       binary.LittleEndian.Uint32(p),
		PciDeviceID:       binary.LittleEndian.Uint32(p[4:]),
		PciRevision:       binary.LittleEndian.Uint32(p[8:]),
		NumberOfRootPorts: binary.LittleEndian.Uint32(p[12:]),
		ControllerFlavor:  binary.LittleEndian.Uint32(p[16:]),
		HcFeatureFlags:    binary.LittleEndian.Uint32(p[20:]),
	}, nil
}

// EncodeReply renders a full identity reply, header included.
func (c ControllerInfo0) EncodeReply() []byte {
	b := make([]byte, UserRequestHeaderSize+ControllerInfo0Size)
	binary.LittleEndian.PutUint32(b, UserGetControllerInfo0)
	binary.LittleEndian.PutUint32(b[8:], uint32(len(b)))
	binary.LittleEndian.PutUint32(b[12:], uint32(len(b)))
	p := b[UserRequestHeaderSize:]
	binary.LittleEndian.PutUint32(p, c.PciVendorID)
	binary.LittleEndian.PutUint32(p[4:], c.PciDeviceID)
	binary.LittleEndian.PutUint32(p[8:], c.PciRevision)
	binary.LittleEndian.PutUint32(p[12:], c.NumberOfRootPorts)
	binary.LittleEndian.PutUint32(p[16:], c.ControllerFlavor)
	binary.LittleEndian.PutUint32(p[20:], c.HcFeatureFlags)
	return b
}
