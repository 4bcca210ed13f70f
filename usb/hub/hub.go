// Package hub models one USB hub as seen through its kernel device handle:
// its node identity, per port connector properties, and the state of every
// device connected downstream.
package hub

import (
	"encoding/binary"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/descriptor"
	"go.viam.com/usbtree/usb/transport"
	"go.viam.com/usbtree/usb/usbioctl"
	"go.viam.com/usbtree/utils"
)

// Connection is the populated state of one hub port.
type Connection = transport.Connection

// PortProperties is the connector information for one hub port.
type PortProperties = transport.PortProperties

// DeviceStrings collects what descriptor fetches reveal about the device on
// one port. InterfaceClass stays ClassVendorSpecific when no configuration
// descriptor revealed one.
type DeviceStrings struct {
	Manufacturer   string
	Product        string
	SerialNumber   string
	InterfaceClass usb.Class
}

// Hub owns the device handle of one hub and the state queried through it.
// Accessors are meaningless before Populate.
type Hub struct {
	transport *transport.Transport
	logger    golog.Logger

	path        string
	nodeInfo    usbioctl.NodeInformation
	infoEx      usbioctl.HubInformationEx
	caps        usbioctl.HubCapabilitiesEx
	ports       map[int]PortProperties
	connections map[int]Connection
	strings     map[int]DeviceStrings
	populated   bool
}

// New opens the hub device at path.
func New(path string, logger golog.Logger) (*Hub, error) {
	tr, err := transport.Open(path, logger)
	if err != nil {
		return nil, err
	}
	h := NewFromTransport(tr, logger)
	h.path = path
	return h, nil
}

// NewFromTransport wraps an already open hub transport.
func NewFromTransport(tr *transport.Transport, logger golog.Logger) *Hub {
	return &Hub{
		transport: tr,
		logger:    logger,
		strings:   map[int]DeviceStrings{},
	}
}

// Populate runs the query sequence against the hub: node information for
// the port count, extended information and capabilities best effort, then
// connector properties and connection state for every port.
func (h *Hub) Populate() error {
	info, err := h.transport.HubNodeInformation()
	if err != nil {
		return errors.Wrap(err, "hub node information")
	}
	h.nodeInfo = info
	portCount := info.PortCount()
	if portCount == 0 {
		h.populated = true
		return nil
	}
	if h.infoEx, err = h.transport.HubInformationEx(); err != nil {
		return err
	}
	if h.caps, err = h.transport.HubCapabilitiesEx(); err != nil {
		return err
	}
	if h.ports, err = h.transport.PortConnectorProperties(portCount); err != nil {
		return errors.Wrap(err, "port connector properties")
	}
	if h.connections, err = h.transport.PortConnections(portCount); err != nil {
		return errors.Wrap(err, "port connections")
	}
	h.populated = true
	return nil
}

// Path returns the device path the hub was opened on, empty for injected
// transports.
func (h *Hub) Path() string {
	return h.path
}

// Populated reports whether Populate has completed.
func (h *Hub) Populated() bool {
	return h.populated
}

// NodeInfo returns the hub's node information.
func (h *Hub) NodeInfo() usbioctl.NodeInformation {
	return h.nodeInfo
}

// InfoEx returns the extended hub information, Supported unset when the
// hub driver does not answer the query.
func (h *Hub) InfoEx() usbioctl.HubInformationEx {
	return h.infoEx
}

// CapabilitiesEx returns the extended hub capabilities, Supported unset
// when the hub driver does not answer the query.
func (h *Hub) CapabilitiesEx() usbioctl.HubCapabilitiesEx {
	return h.caps
}

// PortCount returns the hub's port count.
func (h *Hub) PortCount() int {
	return h.nodeInfo.PortCount()
}

// Ports returns the connector properties keyed by port number.
func (h *Hub) Ports() map[int]PortProperties {
	return h.ports
}

// Connections returns the connection state keyed by port number.
func (h *Hub) Connections() map[int]Connection {
	return h.connections
}

// Strings returns the descriptor findings recorded by FillConfigDescriptor,
// keyed by port number.
func (h *Hub) Strings() map[int]DeviceStrings {
	return h.strings
}

// Close releases the hub's device handle.
func (h *Hub) Close() error {
	return h.transport.Close()
}

// FillConfigDescriptor reads the device's configuration descriptor on a
// connection index and records what it reveals: the first interface class,
// and when the descriptors look usable, the manufacturer, product, and
// serial number strings.
func (h *Hub) FillConfigDescriptor(dev descriptor.Device, connectionIndex int, descriptorIndex uint8) error {
	config, err := h.transport.ConfigDescriptor(connectionIndex, descriptorIndex)
	if err != nil {
		return err
	}
	entry, ok := h.strings[connectionIndex]
	if !ok {
		entry.InterfaceClass = usb.ClassVendorSpecific
	}
	if class, ok := descriptor.FirstInterfaceClass(config); ok {
		entry.InterfaceClass = class
	}
	if DescriptorsUsable(dev, config) {
		found, err := h.AllStringDescriptors(connectionIndex, dev)
		if err != nil {
			return err
		}
		entry.Manufacturer = found.Manufacturer
		entry.Product = found.Product
		entry.SerialNumber = found.SerialNumber
	}
	h.strings[connectionIndex] = entry
	return nil
}

// DescriptorsUsable reports whether fetching string descriptors from the
// device is worthwhile: either the device descriptor names string indexes
// directly, or something in its configuration chain does.
func DescriptorsUsable(dev descriptor.Device, config []byte) bool {
	if dev.HasStringIndexes() {
		return true
	}
	return descriptor.HasStringIndexes(config)
}

// AllStringDescriptors fetches the manufacturer, product, and serial number
// strings at the indexes the device descriptor names, in the device's first
// supported language. Individual fetch failures leave empty strings.
func (h *Hub) AllStringDescriptors(connectionIndex int, dev descriptor.Device) (DeviceStrings, error) {
	if connectionIndex <= 0 {
		return DeviceStrings{}, errors.Wrapf(transport.ErrInvalidArgument, "connection index %d", connectionIndex)
	}
	language := h.deviceLanguage(connectionIndex)
	return DeviceStrings{
		Manufacturer: h.stringAt(connectionIndex, dev.ManufacturerIndex, language),
		Product:      h.stringAt(connectionIndex, dev.ProductIndex, language),
		SerialNumber: h.stringAt(connectionIndex, dev.SerialNumberIndex, language),
	}, nil
}

// deviceLanguage picks the first entry of the device's supported language
// list, defaulting when the device does not answer.
func (h *Hub) deviceLanguage(connectionIndex int) uint16 {
	raw, err := h.transport.StringDescriptor(connectionIndex, 0, 0)
	if err != nil || len(raw) < 4 {
		return usb.DefaultLanguageID
	}
	return binary.LittleEndian.Uint16(raw[2:])
}

func (h *Hub) stringAt(connectionIndex int, index uint8, language uint16) string {
	if index == 0 {
		return ""
	}
	raw, err := h.transport.StringDescriptor(connectionIndex, index, language)
	if err != nil || len(raw) < 4 {
		return ""
	}
	s, err := utils.DecodeUTF16LE(raw[2:])
	if err != nil {
		h.logger.Debugw("undecodable string descriptor", "connection", connectionIndex, "index", index, "error", err)
		return ""
	}
	return s
}

// ExternalHubName resolves the symbolic link name of a downstream hub on a
// connection index.
func (h *Hub) ExternalHubName(connectionIndex int) (string, error) {
	return h.transport.ExternalHubName(connectionIndex)
}
