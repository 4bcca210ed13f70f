// Package discovery walks the machine's USB topology, host controllers to
// root hubs to nested hubs to leaf devices, and fuses what the bus reports
// with the device information registry into one record per device.
//
// The registry correlation is heuristic by nature: records are matched by
// hardware id substring and driver key, and the first match wins. The walk
// is best effort throughout; a subtree that cannot be opened or queried is
// skipped and its failure aggregated, never fatal to sibling ports.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	goutils "go.viam.com/utils"

	"go.viam.com/usbtree/devinfo"
	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/controller"
	"go.viam.com/usbtree/usb/hub"
	"go.viam.com/usbtree/usbid"
)

// DefaultMaxDepth bounds hub recursion to the USB tier limit, guarding
// against cyclic or malformed topology reports.
const DefaultMaxDepth = 7

// Device is everything a walk learned about one connected device: identity
// from its descriptors, naming from its string descriptors or the
// registry, and the registry record it correlates to.
type Device struct {
	Manufacturer       string
	Product            string
	SerialNumber       string
	VendorID           uint16
	ProductID          uint16
	VendorName         string
	DeviceClass        usb.Class
	InterfaceClass     usb.Class
	InterfaceClassName string
	SetupClass         uuid.UUID
	DevicePath         string
	FriendlyName       string
	HardwareID         string
	Description        string
	PowerState         devinfo.PowerState
	Connected          bool
	IsUSB              bool
}

func (d Device) String() string {
	name := d.Product
	if name == "" {
		name = d.Description
	}
	if name == "" {
		name = "unknown device"
	}
	return fmt.Sprintf("%s [%04x:%04x]", name, d.VendorID, d.ProductID)
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithMaxDepth bounds hub nesting. Values below 1 reset to the default.
func WithMaxDepth(depth int) Option {
	return func(d *Discoverer) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}
		d.maxDepth = depth
	}
}

// WithConcurrency walks each controller on its own goroutine. Every
// subtree is still walked sequentially over handles nothing else touches.
func WithConcurrency(enabled bool) Option {
	return func(d *Discoverer) {
		d.concurrent = enabled
	}
}

// WithHubOpener replaces how hub device paths are opened.
func WithHubOpener(open func(path string) (*hub.Hub, error)) Option {
	return func(d *Discoverer) {
		d.openHub = open
	}
}

// WithControllerOpener replaces how controller device paths are opened.
func WithControllerOpener(open func(path string) (*controller.Controller, error)) Option {
	return func(d *Discoverer) {
		d.openController = open
	}
}

// Discoverer runs topology walks against one registry record source.
// Independent Discoverers share no state and may run concurrently.
type Discoverer struct {
	source         devinfo.Source
	logger         golog.Logger
	maxDepth       int
	concurrent     bool
	openHub        func(path string) (*hub.Hub, error)
	openController func(path string) (*controller.Controller, error)
}

// New returns a Discoverer reading registry records from source.
func New(source devinfo.Source, logger golog.Logger, opts ...Option) *Discoverer {
	d := &Discoverer{
		source:   source,
		logger:   logger,
		maxDepth: DefaultMaxDepth,
	}
	d.openHub = func(path string) (*hub.Hub, error) {
		return hub.New(path, logger)
	}
	d.openController = func(path string) (*controller.Controller, error) {
		return controller.New(path, logger)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Devices walks every host controller's tree and returns the connected
// devices found. The result is best effort: walk failures are aggregated
// into the returned error alongside whatever was found, and a non-nil
// error never implies an empty list.
func (d *Discoverer) Devices(ctx context.Context) ([]Device, error) {
	records, err := d.source.Records(devinfo.Filter{
		Class:           devinfo.GUIDDeviceInterfaceUSBDevice,
		DeviceInterface: true,
		AllClasses:      true,
		PresentOnly:     true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list device records")
	}
	controllers, err := d.source.Records(devinfo.Filter{
		Class:           devinfo.GUIDDeviceInterfaceUSBHostController,
		DeviceInterface: true,
		PresentOnly:     true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list controller records")
	}

	if d.concurrent {
		return d.walkControllersConcurrent(ctx, controllers, records)
	}

	var (
		devices  []Device
		walkErrs error
	)
	for _, record := range controllers {
		if err := ctx.Err(); err != nil {
			return devices, multierr.Append(walkErrs, err)
		}
		found, err := d.walkController(ctx, record, records)
		devices = append(devices, found...)
		if err != nil {
			d.logger.Errorw("controller walk failed", "path", record.DevicePath, "error", err)
			walkErrs = multierr.Append(walkErrs, err)
		}
	}
	return devices, walkErrs
}

func (d *Discoverer) walkControllersConcurrent(ctx context.Context, controllers, records []devinfo.Record) ([]Device, error) {
	var (
		mu       sync.Mutex
		devices  []Device
		walkErrs error
	)
	group, ctx := errgroup.WithContext(ctx)
	for _, record := range controllers {
		group.Go(func() error {
			found, err := d.walkController(ctx, record, records)
			mu.Lock()
			defer mu.Unlock()
			devices = append(devices, found...)
			if err != nil {
				d.logger.Errorw("controller walk failed", "path", record.DevicePath, "error", err)
				walkErrs = multierr.Append(walkErrs, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		walkErrs = multierr.Append(walkErrs, err)
	}
	return devices, walkErrs
}

// MassStorageDevices filters a full walk down to the devices whose
// interface or device class marks them as mass storage.
func (d *Discoverer) MassStorageDevices(ctx context.Context) ([]Device, error) {
	devices, err := d.Devices(ctx)
	if devices == nil {
		return nil, err
	}
	storage := make([]Device, 0, len(devices))
	for _, device := range devices {
		if device.InterfaceClass.IsMassStorage() || device.DeviceClass.IsMassStorage() {
			storage = append(storage, device)
		}
	}
	return storage, err
}

// DevicesByClass lists the present devices registered under one device
// setup class, built from registry properties alone. Records also
// exposing the USB device interface are marked IsUSB.
func (d *Discoverer) DevicesByClass(ctx context.Context, setupClass uuid.UUID) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := d.source.Records(devinfo.Filter{Class: setupClass, PresentOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "list class records")
	}
	usbKeys := d.usbDriverKeys()
	devices := make([]Device, 0, len(records))
	for _, record := range records {
		devices = append(devices, Device{
			Manufacturer: record.Manufacturer,
			SetupClass:   record.SetupClass,
			DevicePath:   record.DevicePath,
			FriendlyName: record.FriendlyName,
			HardwareID:   record.HardwareID,
			Description:  record.Description,
			PowerState:   record.PowerState,
			Connected:    true,
			IsUSB:        record.HasDriverKey() && usbKeys[record.DriverKey],
		})
	}
	return devices, nil
}

// usbDriverKeys collects the driver keys of every present device exposing
// the USB device interface, the origin probe behind DevicesByClass.
func (d *Discoverer) usbDriverKeys() map[string]bool {
	records, err := d.source.Records(devinfo.Filter{
		Class:           devinfo.GUIDDeviceInterfaceUSBDevice,
		DeviceInterface: true,
		PresentOnly:     true,
	})
	if err != nil {
		d.logger.Debugw("usb interface records unavailable", "error", err)
		return nil
	}
	keys := make(map[string]bool, len(records))
	for _, record := range records {
		if record.HasDriverKey() {
			keys[record.DriverKey] = true
		}
	}
	return keys
}

// walkController opens one host controller, resolves its root hub, and
// walks the tree hanging off it.
func (d *Discoverer) walkController(ctx context.Context, record devinfo.Record, records []devinfo.Record) ([]Device, error) {
	if record.DevicePath == "" {
		return nil, errors.New("controller record carries no device path")
	}
	ctrl, err := d.openController(record.DevicePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open controller %s", record.DevicePath)
	}
	defer goutils.UncheckedErrorFunc(ctrl.Close)
	if err := ctrl.Populate(); err != nil {
		return nil, errors.Wrapf(err, "populate controller %s", record.DevicePath)
	}
	rootPath := ctrl.RootHubPath()
	if rootPath == "" {
		return nil, errors.Errorf("controller %s reports no root hub", record.DevicePath)
	}
	return d.walkHub(ctx, rootPath, records, 0)
}

// walkHub populates the hub at path and processes every connected port:
// child hubs recurse, leaf devices get their configuration descriptor and
// strings fetched, and each port that yielded descriptor findings folds
// into a Device.
func (d *Discoverer) walkHub(ctx context.Context, path string, records []devinfo.Record, depth int) ([]Device, error) {
	if depth >= d.maxDepth {
		d.logger.Warnw("hub nesting exceeds the walk depth, skipping subtree", "path", path, "depth", depth)
		return nil, nil
	}
	h, err := d.openHub(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open hub %s", path)
	}
	defer goutils.UncheckedErrorFunc(h.Close)
	if err := h.Populate(); err != nil {
		return nil, errors.Wrapf(err, "populate hub %s", path)
	}

	var (
		devices      []Device
		walkErrs     error
		correlations = map[int]portCorrelation{}
	)
	connections := h.Connections()
	for port := 1; port <= h.PortCount(); port++ {
		if err := ctx.Err(); err != nil {
			return devices, multierr.Append(walkErrs, err)
		}
		conn, ok := connections[port]
		if !ok || !conn.Status.Connected() {
			continue
		}
		correlation := correlatePort(conn, records)
		correlations[port] = correlation
		if correlation.busRecord == nil {
			continue
		}
		if conn.DeviceIsHub {
			childPath, err := d.hubPath(h, port, correlation.busRecord.DriverKey)
			if err != nil {
				d.logger.Errorw("cannot resolve downstream hub", "port", port, "error", err)
				walkErrs = multierr.Append(walkErrs, err)
				continue
			}
			found, err := d.walkHub(ctx, childPath, records, depth+1)
			devices = append(devices, found...)
			if err != nil {
				d.logger.Errorw("downstream hub walk failed", "port", port, "error", err)
				walkErrs = multierr.Append(walkErrs, err)
			}
			continue
		}
		if err := h.FillConfigDescriptor(conn.DeviceDescriptor, port, 0); err != nil {
			d.logger.Debugw("config descriptor unavailable", "port", port, "error", err)
		}
	}

	findings := h.Strings()
	for port := 1; port <= h.PortCount(); port++ {
		info, ok := findings[port]
		if !ok {
			continue
		}
		correlation, ok := correlations[port]
		if !ok {
			d.logger.Warnw("port yielded descriptors without a correlation pass", "port", port)
		}
		devices = append(devices, d.foldPort(connections[port], info, correlation, records))
	}
	return devices, walkErrs
}

// portCorrelation is what the registry scan established for one connected
// port.
type portCorrelation struct {
	deviceClass usb.Class
	setupClass  uuid.UUID
	busRecord   *devinfo.Record
}

// correlatePort matches one connected port against the registry: records
// whose hardware id contains the port's vendor and product pattern vote on
// the setup class, and the one among them sharing the port's driver key is
// the bus layer record for the physical device.
func correlatePort(conn hub.Connection, records []devinfo.Record) portCorrelation {
	correlation := portCorrelation{deviceClass: conn.DeviceDescriptor.DeviceClass}
	pattern := hardwareIDPattern(conn.DeviceDescriptor.VendorID, conn.DeviceDescriptor.ProductID)
	var candidates []uuid.UUID
	for i := range records {
		record := &records[i]
		if !strings.Contains(record.HardwareID, pattern) {
			continue
		}
		candidates = append(candidates, record.SetupClass)
		if correlation.busRecord == nil && record.HasDriverKey() && record.DriverKey == conn.DriverKey {
			correlation.busRecord = record
		}
	}
	correlation.setupClass = selectSetupClass(candidates)
	return correlation
}

// selectSetupClass picks the setup class from the candidate records: the
// first one, unless a more specific alternative to the generic USB device
// interface class exists. First match wins among several alternatives.
func selectSetupClass(candidates []uuid.UUID) uuid.UUID {
	if len(candidates) == 0 {
		return uuid.Nil
	}
	if len(candidates) > 1 {
		for _, candidate := range candidates {
			if candidate != devinfo.GUIDDeviceInterfaceUSBDevice {
				return candidate
			}
		}
	}
	return candidates[0]
}

// foldPort merges one port's descriptor findings and registry correlation
// into the final device record.
func (d *Discoverer) foldPort(conn hub.Connection, info hub.DeviceStrings, correlation portCorrelation, records []devinfo.Record) Device {
	dev := conn.DeviceDescriptor
	device := Device{
		Manufacturer: info.Manufacturer,
		Product:      info.Product,
		SerialNumber: info.SerialNumber,
		VendorID:     dev.VendorID,
		ProductID:    dev.ProductID,
		VendorName:   usbid.VendorName(dev.VendorID),
		DeviceClass:  correlation.deviceClass,
		SetupClass:   correlation.setupClass,
		Connected:    true,
		IsUSB:        true,
	}

	// The registry names devices whose descriptors do not.
	if device.Manufacturer == "" && device.Product == "" {
		pattern := hardwareIDPattern(dev.VendorID, dev.ProductID)
		for _, record := range records {
			if record.MatchesHardwareID(pattern) && record.Description != "" {
				device.Product = record.Description
				break
			}
		}
	}

	// A functional record, one whose description mentions the product,
	// carries a more specific class than the bus layer record.
	if device.Product != "" {
		for i := range records {
			if records[i].Description != "" && strings.Contains(records[i].Description, device.Product) {
				device.SetupClass = records[i].SetupClass
				break
			}
		}
	}

	if record := correlation.busRecord; record != nil {
		device.DevicePath = record.DevicePath
		device.FriendlyName = record.FriendlyName
		device.HardwareID = record.HardwareID
		device.Description = record.Description
		device.PowerState = record.PowerState
	}

	if info.InterfaceClass != usb.ClassVendorSpecific {
		device.InterfaceClass = info.InterfaceClass
		device.InterfaceClassName = info.InterfaceClass.Name()
	} else if device.DeviceClass != 0 {
		device.InterfaceClassName = device.DeviceClass.Name()
	}
	return device
}

// hardwareIDPattern builds the vendor and product substring the registry
// embeds in USB hardware ids, uppercase as the registry writes it.
func hardwareIDPattern(vendorID, productID uint16) string {
	return fmt.Sprintf("VID_%04X&PID_%04X", vendorID, productID)
}

// hubPath resolves the device path a downstream hub can be opened on: the
// hub interface record sharing the port's driver key, falling back to the
// kernel's own symbolic link for the port.
func (d *Discoverer) hubPath(h *hub.Hub, port int, driverKey string) (string, error) {
	hubRecords, err := d.source.Records(devinfo.Filter{
		Class:           devinfo.GUIDDeviceInterfaceUSBHub,
		DeviceInterface: true,
		PresentOnly:     true,
	})
	if err != nil {
		d.logger.Debugw("hub interface records unavailable", "error", err)
	}
	for _, record := range hubRecords {
		if record.HasDriverKey() && record.DriverKey == driverKey && record.DevicePath != "" {
			return record.DevicePath, nil
		}
	}
	name, err := h.ExternalHubName(port)
	if err != nil {
		return "", errors.Wrapf(err, "external hub name on port %d", port)
	}
	if name == "" {
		return "", errors.Errorf("port %d hub announces no name", port)
	}
	return `\\.\` + name, nil
}
