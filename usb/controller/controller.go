// Package controller models one USB host controller: its PCI identity and
// the kernel name of the root hub hanging off it.
package controller

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb/transport"
	"go.viam.com/usbtree/usb/usbioctl"
)

// Controller owns the device handle of one host controller and the
// identity queried through it. Accessors are meaningless before Populate.
type Controller struct {
	transport *transport.Transport
	logger    golog.Logger

	path      string
	info      usbioctl.ControllerInfo0
	rootHub   string
	driverKey string
	populated bool
}

// New opens the controller device at path.
func New(path string, logger golog.Logger) (*Controller, error) {
	tr, err := transport.Open(path, logger)
	if err != nil {
		return nil, err
	}
	c := NewFromTransport(tr, logger)
	c.path = path
	return c, nil
}

// NewFromTransport wraps an already open controller transport.
func NewFromTransport(tr *transport.Transport, logger golog.Logger) *Controller {
	return &Controller{transport: tr, logger: logger}
}

// Populate queries the controller's PCI identity, its root hub name, and
// its driver key.
func (c *Controller) Populate() error {
	info, err := c.transport.ControllerInfo()
	if err != nil {
		return errors.Wrap(err, "controller identity")
	}
	c.info = info
	if c.rootHub, err = c.transport.RootHubName(); err != nil {
		return errors.Wrap(err, "root hub name")
	}
	if c.driverKey, err = c.transport.HcdDriverKeyName(); err != nil {
		return errors.Wrap(err, "driver key")
	}
	c.populated = true
	return nil
}

// Path returns the device path the controller was opened on, empty for
// injected transports.
func (c *Controller) Path() string {
	return c.path
}

// Populated reports whether Populate has completed.
func (c *Controller) Populated() bool {
	return c.populated
}

// RootHubName returns the kernel relative name of the controller's root
// hub.
func (c *Controller) RootHubName() string {
	return c.rootHub
}

// RootHubPath returns the root hub name as an openable device path.
func (c *Controller) RootHubPath() string {
	if c.rootHub == "" {
		return ""
	}
	return `\\.\` + c.rootHub
}

// DriverKey returns the controller's driver key.
func (c *Controller) DriverKey() string {
	return c.driverKey
}

// PCIVendorID returns the controller's PCI vendor id.
func (c *Controller) PCIVendorID() uint32 {
	return c.info.PciVendorID
}

// PCIDeviceID returns the controller's PCI device id.
func (c *Controller) PCIDeviceID() uint32 {
	return c.info.PciDeviceID
}

// PCIRevision returns the controller's PCI revision.
func (c *Controller) PCIRevision() uint32 {
	return c.info.PciRevision
}

// RootPortCount returns how many root ports the controller drives.
func (c *Controller) RootPortCount() int {
	return int(c.info.NumberOfRootPorts)
}

// Close releases the controller's device handle.
func (c *Controller) Close() error {
	return c.transport.Close()
}
