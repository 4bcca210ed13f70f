// Package fake implements hub and controller device handles that answer
// control queries from scripted state instead of a kernel.
package fake

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb/descriptor"
	"go.viam.com/usbtree/usb/usbioctl"
	"go.viam.com/usbtree/utils"
)

var errNoAnswer = errors.New("request not answered")

// Port is the scripted state behind one hub port. Strings maps a language
// ID to the raw string descriptors indexed in it; language 0 index 0 holds
// the language list.
type Port struct {
	Connection usbioctl.NodeConnectionInformationEx
	V2         *usbioctl.NodeConnectionInformationExV2
	Connector  *usbioctl.PortConnectorProperties
	LegacyOnly bool
	DriverKey  string
	HubName    string
	Config     []byte
	Strings    map[uint16]map[uint8][]byte
}

// Hub is a device handle that answers hub queries from scripted ports.
type Hub struct {
	NodeInfo     usbioctl.NodeInformation
	InfoEx       *usbioctl.HubInformationEx
	Capabilities *usbioctl.HubCapabilitiesEx
	Ports        map[int]*Port
	Closed       bool
}

// NewHub builds a hub node reporting the given number of ports. Ports stay
// unanswered until scripted with AddPort.
func NewHub(portCount int) *Hub {
	return &Hub{
		NodeInfo: usbioctl.NodeInformation{
			NodeType: usbioctl.NodeTypeHub,
			HubDescriptor: usbioctl.HubDescriptor{
				Length:         9,
				DescriptorType: 0x29,
				NumberOfPorts:  uint8(portCount),
			},
		},
		Ports: map[int]*Port{},
	}
}

// AddPort scripts one port, keyed by its 1 based port number.
func (h *Hub) AddPort(number int, port *Port) *Port {
	port.Connection.ConnectionIndex = uint32(number)
	h.Ports[number] = port
	return port
}

// Control implements the handle interface against the scripted state.
func (h *Hub) Control(code uint32, in, out []byte) (int, error) {
	switch code {
	case usbioctl.GetNodeInformation:
		return copyReply(out, h.NodeInfo.Encode())
	case usbioctl.GetHubInformationEx:
		if h.InfoEx == nil {
			return 0, errNoAnswer
		}
		return copyReply(out, h.InfoEx.Encode())
	case usbioctl.GetHubCapabilitiesEx:
		if h.Capabilities == nil {
			return 0, errNoAnswer
		}
		return copyReply(out, h.Capabilities.Encode())
	}
	if len(in) < 4 {
		return 0, errNoAnswer
	}
	port, ok := h.Ports[int(binary.LittleEndian.Uint32(in))]
	if !ok {
		return 0, errNoAnswer
	}
	switch code {
	case usbioctl.GetNodeConnectionInformationExV2:
		if port.V2 == nil {
			return 0, errNoAnswer
		}
		return copyReply(out, port.V2.Encode())
	case usbioctl.GetNodeConnectionInformationEx:
		if port.LegacyOnly {
			return 0, errNoAnswer
		}
		return copyReply(out, port.Connection.Encode())
	case usbioctl.GetNodeConnectionInformation:
		return copyReply(out, port.Connection.EncodeLegacy())
	case usbioctl.GetNodeConnectionDriverKeyName:
		if port.DriverKey == "" {
			return 0, errNoAnswer
		}
		reply := usbioctl.NodeConnectionName{ConnectionIndex: port.Connection.ConnectionIndex, Name: port.DriverKey}
		return copyReply(out, reply.Encode())
	case usbioctl.GetNodeConnectionName:
		if port.HubName == "" {
			return 0, errNoAnswer
		}
		reply := usbioctl.NodeConnectionName{ConnectionIndex: port.Connection.ConnectionIndex, Name: port.HubName}
		return copyReply(out, reply.Encode())
	case usbioctl.GetPortConnectorProperties:
		if port.Connector == nil {
			return 0, errNoAnswer
		}
		return copyReply(out, port.Connector.Encode())
	case usbioctl.GetDescriptorFromNodeConnection:
		return port.descriptorReply(in, out)
	}
	return 0, errNoAnswer
}

// Close implements the handle interface.
func (h *Hub) Close() error {
	h.Closed = true
	return nil
}

func (p *Port) descriptorReply(in, out []byte) (int, error) {
	if len(in) < usbioctl.DescriptorRequestHeaderSize {
		return 0, errNoAnswer
	}
	value := binary.LittleEndian.Uint16(in[6:])
	index := binary.LittleEndian.Uint16(in[8:])
	length := binary.LittleEndian.Uint16(in[10:])
	var payload []byte
	switch uint8(value >> 8) {
	case descriptor.TypeConfig:
		if p.Config == nil || uint8(value) != 0 {
			return 0, errNoAnswer
		}
		payload = p.Config
	case descriptor.TypeString:
		byIndex, ok := p.Strings[index]
		if !ok {
			return 0, errNoAnswer
		}
		payload, ok = byIndex[uint8(value)]
		if !ok {
			return 0, errNoAnswer
		}
	default:
		return 0, errNoAnswer
	}
	if int(length) < len(payload) {
		payload = payload[:length]
	}
	n := copy(out[usbioctl.DescriptorRequestHeaderSize:], payload)
	return usbioctl.DescriptorRequestHeaderSize + n, nil
}

// Controller is a device handle that answers host controller queries from
// scripted state.
type Controller struct {
	Info      usbioctl.ControllerInfo0
	RootHub   string
	DriverKey string
	Closed    bool
}

// Control implements the handle interface against the scripted state.
func (c *Controller) Control(code uint32, in, out []byte) (int, error) {
	switch code {
	case usbioctl.UserRequest:
		return copyReply(out, c.Info.EncodeReply())
	case usbioctl.GetRootHubName:
		return copyReply(out, usbioctl.HcdName{Name: c.RootHub}.Encode())
	case usbioctl.GetHcdDriverKeyName:
		return copyReply(out, usbioctl.HcdName{Name: c.DriverKey}.Encode())
	}
	return 0, errNoAnswer
}

// Close implements the handle interface.
func (c *Controller) Close() error {
	c.Closed = true
	return nil
}

func copyReply(out, reply []byte) (int, error) {
	return copy(out, reply), nil
}

// StringDescriptor renders s as a raw string descriptor.
func StringDescriptor(s string) []byte {
	data := utils.EncodeUTF16LE(s)
	b := make([]byte, 2+len(data))
	b[0] = uint8(len(b))
	b[1] = descriptor.TypeString
	copy(b[2:], data)
	return b
}

// LanguageList renders a supported language list descriptor.
func LanguageList(languages ...uint16) []byte {
	b := make([]byte, 2+2*len(languages))
	b[0] = uint8(len(b))
	b[1] = descriptor.TypeString
	for i, language := range languages {
		binary.LittleEndian.PutUint16(b[2+2*i:], language)
	}
	return b
}

// WithStrings scripts the language list plus the manufacturer, product, and
// serial number strings at the indexes the port's device descriptor names.
func (p *Port) WithStrings(language uint16, manufacturer, product, serial string) *Port {
	byIndex := map[uint8][]byte{}
	dev := p.Connection.DeviceDescriptor
	if manufacturer != "" && dev.ManufacturerIndex != 0 {
		byIndex[dev.ManufacturerIndex] = StringDescriptor(manufacturer)
	}
	if product != "" && dev.ProductIndex != 0 {
		byIndex[dev.ProductIndex] = StringDescriptor(product)
	}
	if serial != "" && dev.SerialNumberIndex != 0 {
		byIndex[dev.SerialNumberIndex] = StringDescriptor(serial)
	}
	p.Strings = map[uint16]map[uint8][]byte{
		0:        {0: LanguageList(language)},
		language: byIndex,
	}
	return p
}
