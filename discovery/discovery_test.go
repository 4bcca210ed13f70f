package discovery_test

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/usbtree/devinfo"
	"go.viam.com/usbtree/discovery"
	"go.viam.com/usbtree/testutils"
	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/controller"
	"go.viam.com/usbtree/usb/descriptor"
	"go.viam.com/usbtree/usb/hub"
	"go.viam.com/usbtree/usb/transport"
	"go.viam.com/usbtree/usb/transport/fake"
	"go.viam.com/usbtree/usb/usbioctl"
)

const (
	controllerPath = `\\?\pci#ven_8086&dev_a36d#4&1fe85a8&0&00a8#{3abf6f2d-71c4-462a-8a92-1e6861e6af27}`
	rootHubName    = `USB#ROOT_HUB30#5&2e5c5e7&0#{f18a0e88-c30c-11d0-8815-00a0c906bed8}`
	childHubName   = `usb#vid_2109&pid_2817#7&2c8d5f5&0&1#{f18a0e88-c30c-11d0-8815-00a0c906bed8}`
	childHubPath   = `\\?\` + childHubName

	controllerKey = `{36fc9e60-c465-11cf-8056-444553540000}\0000`
	driveKey      = `{36fc9e60-c465-11cf-8056-444553540000}\0011`
	hubKey        = `{36fc9e60-c465-11cf-8056-444553540000}\0012`
	serialKey     = `{36fc9e60-c465-11cf-8056-444553540000}\0013`
	mouseKey      = `{36fc9e60-c465-11cf-8056-444553540000}\0014`
)

var (
	diskSetupClass  = uuid.MustParse("4d36e967-e325-11ce-bfc1-08002be10318")
	portsSetupClass = uuid.MustParse("4d36e978-e325-11ce-bfc1-08002be10318")
	hidSetupClass   = uuid.MustParse("745a17a0-74d3-11d0-b6fe-00a0c90f57da")
)

func driveDescriptor() descriptor.Device {
	return descriptor.Device{
		Length:            descriptor.DeviceSize,
		DescriptorType:    descriptor.TypeDevice,
		BcdUSB:            0x0300,
		MaxPacketSize0:    9,
		VendorID:          0x0951,
		ProductID:         0x172b,
		BcdDevice:         0x0100,
		ManufacturerIndex: 1,
		ProductIndex:      2,
		SerialNumberIndex: 3,
		NumConfigurations: 1,
	}
}

func interfaceConfig(class usb.Class) []byte {
	cfg := []byte{descriptor.ConfigSize, descriptor.TypeConfig, 0, 0, 1, 1, 0, 0x80, 50}
	itf := []byte{descriptor.InterfaceSize, descriptor.TypeInterface, 0, 0, 2, byte(class), 0, 0, 0}
	full := append(cfg, itf...)
	binary.LittleEndian.PutUint16(full[2:], uint16(len(full)))
	return full
}

func drivePort() *fake.Port {
	port := &fake.Port{
		Connection: usbioctl.NodeConnectionInformationEx{
			DeviceDescriptor:          driveDescriptor(),
			CurrentConfigurationValue: 1,
			Speed:                     usb.SpeedSuper,
			DeviceAddress:             4,
			ConnectionStatus:          usb.DeviceConnected,
		},
		DriverKey: driveKey,
		Config:    interfaceConfig(usb.ClassMassStorage),
	}
	return port.WithStrings(usb.DefaultLanguageID, "Kingston", "DataTraveler 3.0", "E0D55EA574DCF0A0")
}

// fakeTree wires scripted hubs and controllers into discoverer options.
type fakeTree struct {
	logger      golog.Logger
	controllers map[string]*fake.Controller
	hubs        map[string]*fake.Hub
}

func newFakeTree(logger golog.Logger) *fakeTree {
	return &fakeTree{
		logger:      logger,
		controllers: map[string]*fake.Controller{},
		hubs:        map[string]*fake.Hub{},
	}
}

func (ft *fakeTree) addController(path, rootHub, driverKey string) *fake.Controller {
	ctrl := &fake.Controller{
		Info:      usbioctl.ControllerInfo0{PciVendorID: 0x8086, PciDeviceID: 0xa36d, NumberOfRootPorts: 2},
		RootHub:   rootHub,
		DriverKey: driverKey,
	}
	ft.controllers[path] = ctrl
	return ctrl
}

func (ft *fakeTree) addHub(path string, h *fake.Hub) *fake.Hub {
	ft.hubs[path] = h
	return h
}

func (ft *fakeTree) options() []discovery.Option {
	return []discovery.Option{
		discovery.WithControllerOpener(func(path string) (*controller.Controller, error) {
			handle, ok := ft.controllers[path]
			if !ok {
				return nil, errors.Errorf("no controller at %s", path)
			}
			return controller.NewFromTransport(transport.New(handle, ft.logger), ft.logger), nil
		}),
		discovery.WithHubOpener(func(path string) (*hub.Hub, error) {
			handle, ok := ft.hubs[path]
			if !ok {
				return nil, errors.Errorf("no hub at %s", path)
			}
			return hub.NewFromTransport(transport.New(handle, ft.logger), ft.logger), nil
		}),
	}
}

func controllerRecord() devinfo.Record {
	return devinfo.Record{
		HardwareID:  `PCI\VEN_8086&DEV_A36D`,
		DriverKey:   controllerKey,
		Description: "USB xHCI Compliant Host Controller",
		DevicePath:  controllerPath,
		SetupClass:  devinfo.GUIDDeviceInterfaceUSBHostController,
	}
}

func driveRecords() []devinfo.Record {
	return []devinfo.Record{
		controllerRecord(),
		{
			HardwareID:   `USB\VID_0951&PID_172B`,
			DriverKey:    driveKey,
			Description:  "USB Mass Storage Device",
			FriendlyName: "Kingston DataTraveler 3.0 USB Device",
			Manufacturer: "Compatible USB storage device",
			DevicePath:   `\\?\usb#vid_0951&pid_172b#e0d55ea574dcf0a0#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`,
			SetupClass:   devinfo.GUIDDeviceInterfaceUSBDevice,
			PowerState:   devinfo.PowerStateD0,
		},
		{
			HardwareID:  `USBSTOR\DISK&VEN_KINGSTON&PROD_DATATRAVELER_3.0`,
			DriverKey:   `{4d36e967-e325-11ce-bfc1-08002be10318}\0008`,
			Description: "DataTraveler 3.0 USB Device",
			SetupClass:  diskSetupClass,
		},
	}
}

func driveTree(logger golog.Logger) *fakeTree {
	root := fake.NewHub(2)
	root.Capabilities = &usbioctl.HubCapabilitiesEx{CapabilityFlags: usbioctl.HubCapRoot}
	root.AddPort(1, drivePort())
	root.AddPort(2, &fake.Port{})

	ft := newFakeTree(logger)
	ft.addController(controllerPath, rootHubName, controllerKey)
	ft.addHub(`\\.\`+rootHubName, root)
	return ft
}

func TestDevices(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ft := driveTree(logger)
	source := devinfo.NewStaticSource(driveRecords()...)
	disc := discovery.New(source, logger, ft.options()...)

	devices, err := disc.Devices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldHaveLength, 1)

	device := devices[0]
	test.That(t, device.Manufacturer, test.ShouldEqual, "Kingston")
	test.That(t, device.Product, test.ShouldEqual, "DataTraveler 3.0")
	test.That(t, device.SerialNumber, test.ShouldEqual, "E0D55EA574DCF0A0")
	test.That(t, device.VendorID, test.ShouldEqual, uint16(0x0951))
	test.That(t, device.ProductID, test.ShouldEqual, uint16(0x172b))
	test.That(t, device.VendorName, test.ShouldEqual, "Kingston Technology")
	test.That(t, device.DeviceClass, test.ShouldEqual, usb.ClassPerInterface)
	test.That(t, device.InterfaceClass, test.ShouldEqual, usb.ClassMassStorage)
	test.That(t, device.InterfaceClassName, test.ShouldEqual, "Mass Storage")
	test.That(t, device.FriendlyName, test.ShouldEqual, "Kingston DataTraveler 3.0 USB Device")
	test.That(t, device.Description, test.ShouldEqual, "USB Mass Storage Device")
	test.That(t, device.HardwareID, test.ShouldEqual, `USB\VID_0951&PID_172B`)
	test.That(t, device.DevicePath, test.ShouldContainSubstring, "vid_0951&pid_172b")
	test.That(t, device.PowerState, test.ShouldEqual, devinfo.PowerStateD0)
	test.That(t, device.Connected, test.ShouldBeTrue)
	test.That(t, device.IsUSB, test.ShouldBeTrue)
	test.That(t, device.String(), test.ShouldEqual, "DataTraveler 3.0 [0951:172b]")

	// The disk record is functional: its description mentions the product,
	// so its setup class wins over the generic bus layer class.
	test.That(t, device.SetupClass, test.ShouldResemble, diskSetupClass)
}

func nestedTree(logger golog.Logger, registryKnowsHub bool) (*fakeTree, []devinfo.Record) {
	via := descriptor.Device{
		Length:            descriptor.DeviceSize,
		DescriptorType:    descriptor.TypeDevice,
		BcdUSB:            0x0210,
		DeviceClass:       usb.ClassHub,
		MaxPacketSize0:    64,
		VendorID:          0x2109,
		ProductID:         0x2817,
		NumConfigurations: 1,
	}
	root := fake.NewHub(1)
	root.AddPort(1, &fake.Port{
		Connection: usbioctl.NodeConnectionInformationEx{
			DeviceDescriptor: via,
			Speed:            usb.SpeedHigh,
			DeviceIsHub:      true,
			DeviceAddress:    2,
			ConnectionStatus: usb.DeviceConnected,
		},
		DriverKey: hubKey,
		HubName:   childHubName,
	})

	arduino := descriptor.Device{
		Length:            descriptor.DeviceSize,
		DescriptorType:    descriptor.TypeDevice,
		BcdUSB:            0x0110,
		DeviceClass:       usb.ClassCDCControl,
		MaxPacketSize0:    8,
		VendorID:          0x2341,
		ProductID:         0x0043,
		ManufacturerIndex: 1,
		ProductIndex:      2,
		NumConfigurations: 1,
	}
	child := fake.NewHub(1)
	port := &fake.Port{
		Connection: usbioctl.NodeConnectionInformationEx{
			DeviceDescriptor:          arduino,
			CurrentConfigurationValue: 1,
			Speed:                     usb.SpeedFull,
			DeviceAddress:             5,
			ConnectionStatus:          usb.DeviceConnected,
		},
		DriverKey: serialKey,
		Config:    interfaceConfig(usb.ClassCDCControl),
	}
	child.AddPort(1, port.WithStrings(usb.DefaultLanguageID, "Arduino LLC", "Arduino Uno", ""))

	ft := newFakeTree(logger)
	ft.addController(controllerPath, rootHubName, controllerKey)
	ft.addHub(`\\.\`+rootHubName, root)
	ft.addHub(childHubPath, child)
	ft.addHub(`\\.\`+childHubName, child)

	records := []devinfo.Record{
		controllerRecord(),
		{
			HardwareID:  `USB\VID_2109&PID_2817`,
			DriverKey:   hubKey,
			Description: "Generic USB Hub",
			SetupClass:  devinfo.GUIDDeviceInterfaceUSBDevice,
		},
		{
			HardwareID:   `USB\VID_2341&PID_0043`,
			DriverKey:    serialKey,
			Description:  "USB Serial Device",
			FriendlyName: "USB Serial Device (COM3)",
			SetupClass:   portsSetupClass,
		},
	}
	if registryKnowsHub {
		records = append(records, devinfo.Record{
			HardwareID: `USB\VID_2109&PID_2817`,
			DriverKey:  hubKey,
			DevicePath: childHubPath,
			SetupClass: devinfo.GUIDDeviceInterfaceUSBHub,
		})
	}
	return ft, records
}

func TestDevicesNestedHub(t *testing.T) {
	for _, tc := range []struct {
		name             string
		registryKnowsHub bool
	}{
		{"hub path from the registry", true},
		{"hub path from the kernel symbolic link", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logger := golog.NewTestLogger(t)
			ft, records := nestedTree(logger, tc.registryKnowsHub)
			disc := discovery.New(devinfo.NewStaticSource(records...), logger, ft.options()...)

			devices, err := disc.Devices(context.Background())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, devices, test.ShouldHaveLength, 1)

			device := devices[0]
			test.That(t, device.Product, test.ShouldEqual, "Arduino Uno")
			test.That(t, device.Manufacturer, test.ShouldEqual, "Arduino LLC")
			test.That(t, device.SerialNumber, test.ShouldBeEmpty)
			test.That(t, device.VendorName, test.ShouldEqual, "Arduino SA")
			test.That(t, device.DeviceClass, test.ShouldEqual, usb.ClassCDCControl)
			test.That(t, device.InterfaceClass, test.ShouldEqual, usb.ClassCDCControl)
			test.That(t, device.SetupClass, test.ShouldResemble, portsSetupClass)
			test.That(t, device.FriendlyName, test.ShouldEqual, "USB Serial Device (COM3)")
		})
	}
}

func TestDevicesDepthLimit(t *testing.T) {
	logger, observed := testutils.NewObservedLogger(t)
	ft, records := nestedTree(logger, true)
	disc := discovery.New(devinfo.NewStaticSource(records...), logger,
		append(ft.options(), discovery.WithMaxDepth(1))...)

	devices, err := disc.Devices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldBeEmpty)
	test.That(t, observed.FilterMessage("hub nesting exceeds the walk depth, skipping subtree").Len(), test.ShouldEqual, 1)
}

func TestDevicesRegistryFallback(t *testing.T) {
	mouse := descriptor.Device{
		Length:            descriptor.DeviceSize,
		DescriptorType:    descriptor.TypeDevice,
		BcdUSB:            0x0200,
		MaxPacketSize0:    8,
		VendorID:          0x046d,
		ProductID:         0xc077,
		NumConfigurations: 1,
	}
	root := fake.NewHub(1)
	root.AddPort(1, &fake.Port{
		Connection: usbioctl.NodeConnectionInformationEx{
			DeviceDescriptor:          mouse,
			CurrentConfigurationValue: 1,
			Speed:                     usb.SpeedLow,
			DeviceAddress:             7,
			ConnectionStatus:          usb.DeviceConnected,
		},
		DriverKey: mouseKey,
		Config:    interfaceConfig(usb.ClassHID),
	})

	logger := golog.NewTestLogger(t)
	ft := newFakeTree(logger)
	ft.addController(controllerPath, rootHubName, controllerKey)
	ft.addHub(`\\.\`+rootHubName, root)

	records := []devinfo.Record{
		controllerRecord(),
		{
			HardwareID:  `USB\VID_046D&PID_C077`,
			DriverKey:   mouseKey,
			Description: "USB Input Device",
			SetupClass:  hidSetupClass,
		},
	}
	disc := discovery.New(devinfo.NewStaticSource(records...), logger, ft.options()...)

	devices, err := disc.Devices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldHaveLength, 1)

	// The device names no strings, so the registry description stands in
	// for the product.
	device := devices[0]
	test.That(t, device.Product, test.ShouldEqual, "USB Input Device")
	test.That(t, device.Manufacturer, test.ShouldBeEmpty)
	test.That(t, device.VendorName, test.ShouldEqual, "Logitech, Inc.")
	test.That(t, device.InterfaceClass, test.ShouldEqual, usb.ClassHID)
	test.That(t, device.SetupClass, test.ShouldResemble, hidSetupClass)
}

func TestDevicesControllerFailureIsolation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ft := driveTree(logger)

	deadPath := `\\?\pci#ven_8086&dev_dead#5&0&0&00a9#{3abf6f2d-71c4-462a-8a92-1e6861e6af27}`
	records := append(driveRecords(), devinfo.Record{
		HardwareID: `PCI\VEN_8086&DEV_DEAD`,
		DriverKey:  `{36fc9e60-c465-11cf-8056-444553540000}\0009`,
		DevicePath: deadPath,
		SetupClass: devinfo.GUIDDeviceInterfaceUSBHostController,
	})
	disc := discovery.New(devinfo.NewStaticSource(records...), logger, ft.options()...)

	devices, err := disc.Devices(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "open controller")
	test.That(t, devices, test.ShouldHaveLength, 1)
	test.That(t, devices[0].Product, test.ShouldEqual, "DataTraveler 3.0")
}

func TestDevicesConcurrent(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ft, records := nestedTree(logger, true)

	secondPath := `\\?\pci#ven_8086&dev_a36e#5&0&0&00b0#{3abf6f2d-71c4-462a-8a92-1e6861e6af27}`
	secondRoot := `USB#ROOT_HUB30#6&11170f6&0#{f18a0e88-c30c-11d0-8815-00a0c906bed8}`
	driveRoot := fake.NewHub(1)
	driveRoot.AddPort(1, drivePort())
	ft.addController(secondPath, secondRoot, `{36fc9e60-c465-11cf-8056-444553540000}\0001`)
	ft.addHub(`\\.\`+secondRoot, driveRoot)

	records = append(records, devinfo.Record{
		HardwareID: `PCI\VEN_8086&DEV_A36E`,
		DriverKey:  `{36fc9e60-c465-11cf-8056-444553540000}\0001`,
		DevicePath: secondPath,
		SetupClass: devinfo.GUIDDeviceInterfaceUSBHostController,
	})
	records = append(records, driveRecords()[1:]...)

	disc := discovery.New(devinfo.NewStaticSource(records...), logger,
		append(ft.options(), discovery.WithConcurrency(true))...)

	devices, err := disc.Devices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldHaveLength, 2)

	products := map[string]bool{}
	for _, device := range devices {
		products[device.Product] = true
	}
	test.That(t, products, test.ShouldResemble, map[string]bool{"Arduino Uno": true, "DataTraveler 3.0": true})
}

func TestDevicesContextCanceled(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ft := driveTree(logger)
	disc := discovery.New(devinfo.NewStaticSource(driveRecords()...), logger, ft.options()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	devices, err := disc.Devices(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, devices, test.ShouldBeEmpty)
}

func TestIndependentDiscoverers(t *testing.T) {
	logger := golog.NewTestLogger(t)

	run := func(disc *discovery.Discoverer, out *[]discovery.Device, errOut *error, wg *sync.WaitGroup) {
		defer wg.Done()
		*out, *errOut = disc.Devices(context.Background())
	}

	firstTree := driveTree(logger)
	first := discovery.New(devinfo.NewStaticSource(driveRecords()...), logger, firstTree.options()...)
	secondTree, records := nestedTree(logger, true)
	second := discovery.New(devinfo.NewStaticSource(records...), logger, secondTree.options()...)

	var wg sync.WaitGroup
	var firstFound, secondFound []discovery.Device
	var firstErr, secondErr error
	wg.Add(2)
	go run(first, &firstFound, &firstErr, &wg)
	go run(second, &secondFound, &secondErr, &wg)
	wg.Wait()

	test.That(t, firstErr, test.ShouldBeNil)
	test.That(t, firstFound, test.ShouldHaveLength, 1)
	test.That(t, firstFound[0].Product, test.ShouldEqual, "DataTraveler 3.0")
	test.That(t, secondErr, test.ShouldBeNil)
	test.That(t, secondFound, test.ShouldHaveLength, 1)
	test.That(t, secondFound[0].Product, test.ShouldEqual, "Arduino Uno")
}

func TestDevicesByClass(t *testing.T) {
	records := []devinfo.Record{
		{
			HardwareID:   `USBSTOR\DISK&VEN_KINGSTON&PROD_DATATRAVELER_3.0`,
			DriverKey:    driveKey,
			Description:  "Disk drive",
			FriendlyName: "Kingston DataTraveler 3.0 USB Device",
			Manufacturer: "(Standard disk drives)",
			SetupClass:   diskSetupClass,
			PowerState:   devinfo.PowerStateD0,
		},
		{
			HardwareID: `USB\VID_0951&PID_172B`,
			DriverKey:  driveKey,
			SetupClass: devinfo.GUIDDeviceInterfaceUSBDevice,
		},
		{
			HardwareID:   `SCSI\DISK&VEN_SAMSUNG`,
			DriverKey:    `{4d36e967-e325-11ce-bfc1-08002be10318}\0001`,
			Description:  "Samsung SSD 970 EVO",
			FriendlyName: "Samsung SSD 970 EVO 1TB",
			SetupClass:   diskSetupClass,
			PowerState:   devinfo.PowerStateD0,
		},
	}
	logger := golog.NewTestLogger(t)
	disc := discovery.New(devinfo.NewStaticSource(records...), logger)

	devices, err := disc.DevicesByClass(context.Background(), diskSetupClass)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldHaveLength, 2)

	test.That(t, devices[0].FriendlyName, test.ShouldEqual, "Kingston DataTraveler 3.0 USB Device")
	test.That(t, devices[0].Description, test.ShouldEqual, "Disk drive")
	test.That(t, devices[0].Manufacturer, test.ShouldEqual, "(Standard disk drives)")
	test.That(t, devices[0].HardwareID, test.ShouldContainSubstring, "KINGSTON")
	test.That(t, devices[0].SetupClass, test.ShouldResemble, diskSetupClass)
	test.That(t, devices[0].Connected, test.ShouldBeTrue)
	test.That(t, devices[0].IsUSB, test.ShouldBeTrue)

	test.That(t, devices[1].FriendlyName, test.ShouldEqual, "Samsung SSD 970 EVO 1TB")
	test.That(t, devices[1].IsUSB, test.ShouldBeFalse)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = disc.DevicesByClass(canceled, diskSetupClass)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestMassStorageDevices(t *testing.T) {
	keyboard := descriptor.Device{
		Length:            descriptor.DeviceSize,
		DescriptorType:    descriptor.TypeDevice,
		BcdUSB:            0x0200,
		MaxPacketSize0:    8,
		VendorID:          0x045e,
		ProductID:         0x0750,
		ProductIndex:      2,
		NumConfigurations: 1,
	}
	keyboardKey := `{36fc9e60-c465-11cf-8056-444553540000}\0015`
	root := fake.NewHub(2)
	root.AddPort(1, drivePort())
	port := &fake.Port{
		Connection: usbioctl.NodeConnectionInformationEx{
			DeviceDescriptor:          keyboard,
			CurrentConfigurationValue: 1,
			Speed:                     usb.SpeedLow,
			DeviceAddress:             9,
			ConnectionStatus:          usb.DeviceConnected,
		},
		DriverKey: keyboardKey,
		Config:    interfaceConfig(usb.ClassHID),
	}
	root.AddPort(2, port.WithStrings(usb.DefaultLanguageID, "", "Wired Keyboard 600", ""))

	logger := golog.NewTestLogger(t)
	ft := newFakeTree(logger)
	ft.addController(controllerPath, rootHubName, controllerKey)
	ft.addHub(`\\.\`+rootHubName, root)

	records := append(driveRecords(), devinfo.Record{
		HardwareID:  `USB\VID_045E&PID_0750`,
		DriverKey:   keyboardKey,
		Description: "USB Input Device",
		SetupClass:  hidSetupClass,
	})
	disc := discovery.New(devinfo.NewStaticSource(records...), logger, ft.options()...)

	all, err := disc.Devices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all, test.ShouldHaveLength, 2)

	storage, err := disc.MassStorageDevices(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, storage, test.ShouldHaveLength, 1)
	test.That(t, storage[0].Product, test.ShouldEqual, "DataTraveler 3.0")
}

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}
