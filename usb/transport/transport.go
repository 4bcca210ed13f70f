// Package transport issues the control queries hub and host controller
// device handles answer.
//
// All request building, validation, and two phase sizing lives here in
// portable code; the only platform specific piece is the Handle that
// carries a request into the kernel. Tests script handles with canned
// replies and exercise the same paths production uses.
package transport

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/descriptor"
	"go.viam.com/usbtree/usb/usbioctl"
)

// Handle is a device handle that answers kernel control requests. The
// production implementation wraps DeviceIoControl.
type Handle interface {
	// Control issues one control request, writing the reply into out, and
	// returns the number of bytes the kernel produced.
	Control(code uint32, in, out []byte) (int, error)
	Close() error
}

// PortProperties is the connector information for one hub port. Filled is
// unset when the port answered its size probe but failed the full fetch.
type PortProperties struct {
	ConnectionIndex              int
	CompanionIndex               int
	CompanionPortNumber          int
	CompanionHubSymbolicLinkName string
	Filled                       bool
}

// Connection is the populated state of one hub port.
type Connection struct {
	ConnectionIndex           int
	DeviceDescriptor          descriptor.Device
	CurrentConfigurationValue uint8
	Speed                     usb.Speed
	DeviceIsHub               bool
	DeviceAddress             uint16
	NumberOfOpenPipes         int
	Pipes                     []usbioctl.PipeInfo
	Status                    usb.ConnectionStatus
	DriverKey                 string
}

// Transport issues control queries over a single device handle. A
// transport owns its handle exclusively and is not safe for concurrent
// use.
type Transport struct {
	handle Handle
	logger golog.Logger
}

// New wraps an already open handle.
func New(handle Handle, logger golog.Logger) *Transport {
	return &Transport{handle: handle, logger: logger}
}

// Open opens the device at path for control queries. A path that cannot be
// opened reads as an invalid handle.
func Open(path string, logger golog.Logger) (*Transport, error) {
	handle, err := openHandle(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidHandle, "open %s: %v", path, err)
	}
	return New(handle, logger), nil
}

func (t *Transport) valid() bool {
	return t != nil && t.handle != nil
}

// Close releases the device handle. The transport is unusable afterwards.
func (t *Transport) Close() error {
	if !t.valid() {
		return nil
	}
	handle := t.handle
	t.handle = nil
	return handle.Close()
}

// HubNodeInformation asks the hub what kind of node it is and, for hub
// nodes, how many ports it has.
func (t *Transport) HubNodeInformation() (usbioctl.NodeInformation, error) {
	if !t.valid() {
		return usbioctl.NodeInformation{}, ErrInvalidHandle
	}
	out := make([]byte, usbioctl.NodeInformationSize)
	n, err := t.handle.Control(usbioctl.GetNodeInformation, make([]byte, usbioctl.NodeInformationSize), out)
	if err != nil {
		return usbioctl.NodeInformation{}, ioError("node information", err)
	}
	info, err := usbioctl.DecodeNodeInformation(out[:n])
	if err != nil {
		return usbioctl.NodeInformation{}, errors.Wrap(err, "node information")
	}
	return info, nil
}

// HubInformationEx asks for extended hub information. Hub drivers that
// predate the query reject it; that reads as Supported unset, not an
// error.
func (t *Transport) HubInformationEx() (usbioctl.HubInformationEx, error) {
	if !t.valid() {
		return usbioctl.HubInformationEx{}, ErrInvalidHandle
	}
	out := make([]byte, usbioctl.HubInformationExSize)
	n, err := t.handle.Control(usbioctl.GetHubInformationEx, make([]byte, usbioctl.HubInformationExSize), out)
	if err != nil || n < usbioctl.HubInformationExSize {
		return usbioctl.HubInformationEx{}, nil
	}
	info, err := usbioctl.DecodeHubInformationEx(out[:n])
	if err != nil {
		return usbioctl.HubInformationEx{}, nil
	}
	info.Supported = true
	return info, nil
}

// HubCapabilitiesEx asks for extended hub capabilities, best effort the
// same way HubInformationEx is.
func (t *Transport) HubCapabilitiesEx() (usbioctl.HubCapabilitiesEx, error) {
	if !t.valid() {
		return usbioctl.HubCapabilitiesEx{}, ErrInvalidHandle
	}
	out := make([]byte, usbioctl.HubCapabilitiesExSize)
	n, err := t.handle.Control(usbioctl.GetHubCapabilitiesEx, make([]byte, usbioctl.HubCapabilitiesExSize), out)
	if err != nil || n < usbioctl.HubCapabilitiesExSize {
		return usbioctl.HubCapabilitiesEx{}, nil
	}
	caps, err := usbioctl.DecodeHubCapabilitiesEx(out[:n])
	if err != nil {
		return usbioctl.HubCapabilitiesEx{}, nil
	}
	caps.Supported = true
	return caps, nil
}

func validatePortCount(portCount int) error {
	if portCount <= 0 || portCount > usb.MaxPortsPerHub {
		return errors.Wrapf(ErrInvalidArgument, "port count %d", portCount)
	}
	return nil
}

// PortConnectorProperties queries the connector of every port on the hub,
// keyed by 1 based port number. Ports whose size probe misbehaves are
// omitted; a failed full fetch leaves an entry with Filled unset.
func (t *Transport) PortConnectorProperties(portCount int) (map[int]PortProperties, error) {
	if err := validatePortCount(portCount); err != nil {
		return nil, err
	}
	if !t.valid() {
		return nil, ErrInvalidHandle
	}
	ports := make(map[int]PortProperties, portCount)
	for port := 1; port <= portCount; port++ {
		probeOut := make([]byte, usbioctl.PortConnectorPropertiesFixedSize)
		n, err := t.handle.Control(usbioctl.GetPortConnectorProperties,
			usbioctl.EncodeConnectionRequest(uint32(port), len(probeOut)), probeOut)
		if err != nil || n != usbioctl.PortConnectorPropertiesFixedSize {
			t.logger.Debugw("port connector probe failed", "port", port, "error", err)
			continue
		}
		probe, err := usbioctl.DecodePortConnectorProperties(probeOut)
		if err != nil {
			t.logger.Debugw("port connector probe undecodable", "port", port, "error", err)
			continue
		}
		entry := PortProperties{ConnectionIndex: port}
		if int(probe.ActualLength) <= usbioctl.PortConnectorPropertiesFixedSize {
			entry.CompanionIndex = int(probe.CompanionIndex)
			entry.CompanionPortNumber = int(probe.CompanionPortNumber)
			entry.Filled = true
			ports[port] = entry
			continue
		}
		fullOut := make([]byte, probe.ActualLength)
		n, err = t.handle.Control(usbioctl.GetPortConnectorProperties,
			usbioctl.EncodeConnectionRequest(uint32(port), len(fullOut)), fullOut)
		if err != nil || n < usbioctl.PortConnectorPropertiesFixedSize {
			t.logger.Debugw("port connector fetch failed", "port", port, "error", err)
			ports[port] = entry
			continue
		}
		full, err := usbioctl.DecodePortConnectorProperties(fullOut[:n])
		if err != nil {
			t.logger.Debugw("port connector fetch undecodable", "port", port, "error", err)
			ports[port] = entry
			continue
		}
		entry.CompanionIndex = int(full.CompanionIndex)
		entry.CompanionPortNumber = int(full.CompanionPortNumber)
		entry.CompanionHubSymbolicLinkName = full.CompanionHubSymbolicLinkName
		entry.Filled = true
		ports[port] = entry
	}
	return ports, nil
}

// PortConnections queries the connection state of every port on the hub,
// keyed by 1 based port number. Each port is asked in the newest dialect
// it answers: the V2 query refines speed, the extended query is the
// workhorse, and the legacy query is the fallback. Ports that answer no
// dialect are omitted.
func (t *Transport) PortConnections(portCount int) (map[int]Connection, error) {
	if err := validatePortCount(portCount); err != nil {
		return nil, err
	}
	if !t.valid() {
		return nil, ErrInvalidHandle
	}
	connections := make(map[int]Connection, portCount)
	for port := 1; port <= portCount; port++ {
		v2, v2Supported := t.portConnectionV2(port)

		conn, ok := t.portConnectionEx(port)
		if ok {
			if v2Supported && conn.Speed == usb.SpeedHigh && v2.OperatingAtSuperSpeed() {
				conn.Speed = usb.SpeedSuper
			}
		} else {
			conn, ok = t.portConnectionLegacy(port)
			if !ok {
				t.logger.Debugw("port answered no connection query", "port", port)
				continue
			}
		}
		if conn.Status == usb.DeviceConnected {
			driverKey, err := t.DriverKeyName(port)
			if err != nil {
				t.logger.Debugw("driver key unavailable", "port", port, "error", err)
			} else {
				conn.DriverKey = driverKey
			}
		}
		connections[port] = conn
	}
	return connections, nil
}

func (t *Transport) portConnectionV2(port int) (usbioctl.NodeConnectionInformationExV2, bool) {
	out := make([]byte, usbioctl.NodeConnectionInformationExV2Size)
	n, err := t.handle.Control(usbioctl.GetNodeConnectionInformationExV2,
		usbioctl.EncodeNodeConnectionInformationExV2Request(uint32(port)), out)
	if err != nil || n != usbioctl.NodeConnectionInformationExV2Size {
		return usbioctl.NodeConnectionInformationExV2{}, false
	}
	v2, err := usbioctl.DecodeNodeConnectionInformationExV2(out)
	if err != nil || v2.Length != usbioctl.NodeConnectionInformationExV2Size {
		return usbioctl.NodeConnectionInformationExV2{}, false
	}
	return v2, true
}

func (t *Transport) portConnectionEx(port int) (Connection, bool) {
	size := usbioctl.NodeConnectionInformationExFixedSize + usb.MaxEndpointsPerDevice*usbioctl.PipeInfoSize
	out := make([]byte, size)
	n, err := t.handle.Control(usbioctl.GetNodeConnectionInformationEx,
		usbioctl.EncodeConnectionRequest(uint32(port), size), out)
	if err != nil {
		return Connection{}, false
	}
	info, err := usbioctl.DecodeNodeConnectionInformationEx(out[:n])
	if err != nil {
		t.logger.Debugw("extended connection reply undecodable", "port", port, "error", err)
		return Connection{}, false
	}
	return connectionFromInfo(info), true
}

func (t *Transport) portConnectionLegacy(port int) (Connection, bool) {
	size := usbioctl.NodeConnectionInformationExFixedSize + usb.MaxEndpointsPerDevice*usbioctl.PipeInfoSize
	out := make([]byte, size)
	n, err := t.handle.Control(usbioctl.GetNodeConnectionInformation,
		usbioctl.EncodeConnectionRequest(uint32(port), size), out)
	if err != nil {
		return Connection{}, false
	}
	info, err := usbioctl.DecodeNodeConnectionInformation(out[:n])
	if err != nil {
		t.logger.Debugw("legacy connection reply undecodable", "port", port, "error", err)
		return Connection{}, false
	}
	return connectionFromInfo(info), true
}

func connectionFromInfo(info usbioctl.NodeConnectionInformationEx) Connection {
	return Connection{
		ConnectionIndex:           int(info.ConnectionIndex),
		DeviceDescriptor:          info.DeviceDescriptor,
		CurrentConfigurationValue: info.CurrentConfigurationValue,
		Speed:                     info.Speed,
		DeviceIsHub:               info.DeviceIsHub,
		DeviceAddress:             info.DeviceAddress,
		NumberOfOpenPipes:         int(info.NumberOfOpenPipes),
		Pipes:                     info.PipeList,
		Status:                    info.ConnectionStatus,
	}
}

// connectionName runs the shared two phase fetch for the name queries
// hanging off a connection index.
func (t *Transport) connectionName(op string, code uint32, connectionIndex int) (string, error) {
	if connectionIndex <= 0 {
		return "", errors.Wrapf(ErrInvalidArgument, "connection index %d", connectionIndex)
	}
	if !t.valid() {
		return "", ErrInvalidHandle
	}
	probeOut := make([]byte, usbioctl.NodeConnectionNameFixedSize)
	n, err := t.handle.Control(code,
		usbioctl.EncodeConnectionRequest(uint32(connectionIndex), len(probeOut)), probeOut)
	if err != nil {
		return "", ioError(op, err)
	}
	probe, err := usbioctl.DecodeNodeConnectionName(probeOut[:n])
	if err != nil {
		return "", errors.Wrap(err, op)
	}
	if probe.ActualLength <= usbioctl.NodeConnectionNameFixedSize {
		return "", &IOError{Op: op, Err: errors.Errorf("reply announces no name (%d bytes)", probe.ActualLength)}
	}
	fullOut := make([]byte, probe.ActualLength)
	n, err = t.handle.Control(code,
		usbioctl.EncodeConnectionRequest(uint32(connectionIndex), len(fullOut)), fullOut)
	if err != nil {
		return "", ioError(op, err)
	}
	full, err := usbioctl.DecodeNodeConnectionName(fullOut[:n])
	if err != nil {
		return "", errors.Wrap(err, op)
	}
	return full.Name, nil
}

// DriverKeyName returns the driver key of the device on a connection
// index.
func (t *Transport) DriverKeyName(connectionIndex int) (string, error) {
	return t.connectionName("driver key name", usbioctl.GetNodeConnectionDriverKeyName, connectionIndex)
}

// ExternalHubName returns the symbolic link name of the hub on a
// connection index.
func (t *Transport) ExternalHubName(connectionIndex int) (string, error) {
	return t.connectionName("external hub name", usbioctl.GetNodeConnectionName, connectionIndex)
}

// ConfigDescriptor fetches a full configuration descriptor from the device
// on a connection index. Devices in states where descriptors cannot be
// read simply have none: that is a nil result, not an error.
func (t *Transport) ConfigDescriptor(connectionIndex int, descriptorIndex uint8) ([]byte, error) {
	if connectionIndex <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "connection index %d", connectionIndex)
	}
	if !t.valid() {
		return nil, ErrInvalidHandle
	}
	headerLen := usbioctl.DescriptorRequestHeaderSize + descriptor.ConfigSize
	out := make([]byte, headerLen)
	n, err := t.handle.Control(usbioctl.GetDescriptorFromNodeConnection,
		usbioctl.EncodeDescriptorRequest(uint32(connectionIndex), usbioctl.ConfigDescriptorSetup(descriptorIndex, descriptor.ConfigSize)), out)
	if err != nil || n != headerLen {
		t.logger.Debugw("config descriptor header unavailable", "connection", connectionIndex, "error", err)
		return nil, nil
	}
	header, err := descriptor.ParseConfig(out[usbioctl.DescriptorRequestHeaderSize:])
	if err != nil || header.TotalLength < descriptor.ConfigSize {
		t.logger.Debugw("config descriptor header implausible", "connection", connectionIndex, "error", err)
		return nil, nil
	}
	fullLen := usbioctl.DescriptorRequestHeaderSize + int(header.TotalLength)
	out = make([]byte, fullLen)
	n, err = t.handle.Control(usbioctl.GetDescriptorFromNodeConnection,
		usbioctl.EncodeDescriptorRequest(uint32(connectionIndex), usbioctl.ConfigDescriptorSetup(descriptorIndex, header.TotalLength)), out)
	if err != nil || n != fullLen {
		t.logger.Debugw("config descriptor truncated", "connection", connectionIndex, "error", err)
		return nil, nil
	}
	full := out[usbioctl.DescriptorRequestHeaderSize:fullLen]
	if !descriptor.ValidateConfig(full) {
		t.logger.Debugw("config descriptor invalid", "connection", connectionIndex)
		return nil, nil
	}
	return full, nil
}

// StringDescriptor fetches one string descriptor, returning the raw
// descriptor bytes with their length and type header. Absent or malformed
// strings are a nil result, not an error.
func (t *Transport) StringDescriptor(connectionIndex int, descriptorIndex uint8, languageID uint16) ([]byte, error) {
	if connectionIndex <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "connection index %d", connectionIndex)
	}
	if !t.valid() {
		return nil, ErrInvalidHandle
	}
	out := make([]byte, usbioctl.DescriptorRequestHeaderSize+usb.MaxStringDescriptorSize)
	n, err := t.handle.Control(usbioctl.GetDescriptorFromNodeConnection,
		usbioctl.EncodeDescriptorRequest(uint32(connectionIndex), usbioctl.StringDescriptorSetup(descriptorIndex, languageID)), out)
	if err != nil {
		return nil, nil
	}
	if n < usbioctl.DescriptorRequestHeaderSize+2 {
		return nil, nil
	}
	payload := out[usbioctl.DescriptorRequestHeaderSize:n]
	if payload[1] != descriptor.TypeString {
		return nil, nil
	}
	if int(payload[0]) != len(payload) || payload[0]%2 != 0 {
		return nil, nil
	}
	return payload, nil
}

// RootHubName returns the kernel name of the controller's root hub.
func (t *Transport) RootHubName() (string, error) {
	return t.hcdName("root hub name", usbioctl.GetRootHubName)
}

// HcdDriverKeyName returns the controller's driver key.
func (t *Transport) HcdDriverKeyName() (string, error) {
	return t.hcdName("controller driver key", usbioctl.GetHcdDriverKeyName)
}

func (t *Transport) hcdName(op string, code uint32) (string, error) {
	if !t.valid() {
		return "", ErrInvalidHandle
	}
	probeOut := make([]byte, usbioctl.HcdNameFixedSize)
	n, err := t.handle.Control(code, make([]byte, usbioctl.HcdNameFixedSize), probeOut)
	if err != nil {
		return "", ioError(op, err)
	}
	probe, err := usbioctl.DecodeHcdName(probeOut[:n])
	if err != nil {
		return "", errors.Wrap(err, op)
	}
	if probe.ActualLength <= usbioctl.HcdNameFixedSize {
		return "", &IOError{Op: op, Err: errors.Errorf("reply announces no name (%d bytes)", probe.ActualLength)}
	}
	fullOut := make([]byte, probe.ActualLength)
	n, err = t.handle.Control(code, make([]byte, probe.ActualLength), fullOut)
	if err != nil {
		return "", ioError(op, err)
	}
	full, err := usbioctl.DecodeHcdName(fullOut[:n])
	if err != nil {
		return "", errors.Wrap(err, op)
	}
	return full.Name, nil
}

// ControllerInfo asks a host controller for its PCI identity and root port
// count.
func (t *Transport) ControllerInfo() (usbioctl.ControllerInfo0, error) {
	if !t.valid() {
		return usbioctl.ControllerInfo0{}, ErrInvalidHandle
	}
	out := make([]byte, usbioctl.UserRequestHeaderSize+usbioctl.ControllerInfo0Size)
	n, err := t.handle.Control(usbioctl.UserRequest, usbioctl.EncodeControllerInfoRequest(), out)
	if err != nil {
		return usbioctl.ControllerInfo0{}, ioError("controller info", err)
	}
	info, err := usbioctl.DecodeControllerInfo(out[:n])
	if err != nil {
		return usbioctl.ControllerInfo0{}, errors.Wrap(err, "controller info")
	}
	return info, nil
}
