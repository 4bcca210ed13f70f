package hub_test

import (
	"encoding/binary"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/usbtree/testutils/inject"
	"go.viam.com/usbtree/usb"
	"go.viam.com/usbtree/usb/descriptor"
	"go.viam.com/usbtree/usb/hub"
	"go.viam.com/usbtree/usb/transport"
	"go.viam.com/usbtree/usb/transport/fake"
	"go.viam.com/usbtree/usb/usbioctl"
)

func flashDriveDescriptor() descriptor.Device {
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

func configChain(iConfiguration, iInterface uint8) []byte {
	cfg := []byte{descriptor.ConfigSize, descriptor.TypeConfig, 0, 0, 1, 1, iConfiguration, 0x80, 50}
	itf := []byte{descriptor.InterfaceSize, descriptor.TypeInterface, 0, 0, 2, byte(usb.ClassMassStorage), 0x06, 0x50, iInterface}
	full := append(cfg, itf...)
	binary.LittleEndian.PutUint16(full[2:], uint16(len(full)))
	return full
}

func scriptedHub(t *testing.T) (*fake.Hub, *hub.Hub) {
	t.Helper()
	logger := golog.NewTestLogger(t)
	handle := fake.NewHub(2)
	handle.InfoEx = &usbioctl.HubInformationEx{HubType: usbioctl.HubTypeUsb30, HighestPortNumber: 2}
	handle.Capabilities = &usbioctl.HubCapabilitiesEx{CapabilityFlags: usbioctl.HubCapRoot}
	port := handle.AddPort(1, &fake.Port{
		Connection: usbioctl.NodeConnectionInformationEx{
			DeviceDescriptor:          flashDriveDescriptor(),
			CurrentConfigurationValue: 1,
			Speed:                     usb.SpeedSuper,
			DeviceAddress:             3,
			ConnectionStatus:          usb.DeviceConnected,
		},
		DriverKey: `{36fc9e60-c465-11cf-8056-444553540000}\0007`,
		Connector: &usbioctl.PortConnectorProperties{ConnectionIndex: 1, CompanionPortNumber: 9},
		Config:    configChain(0, 0),
	})
	port.WithStrings(usb.DefaultLanguageID, "Kingston", "DataTraveler 3.0", "E0D55EA574DCF0A0")
	handle.AddPort(2, &fake.Port{})
	return handle, hub.NewFromTransport(transport.New(handle, logger), logger)
}

func TestHubPopulate(t *testing.T) {
	handle, h := scriptedHub(t)

	test.That(t, h.Populated(), test.ShouldBeFalse)
	test.That(t, h.Populate(), test.ShouldBeNil)
	test.That(t, h.Populated(), test.ShouldBeTrue)

	test.That(t, h.NodeInfo().NodeType, test.ShouldEqual, usbioctl.NodeTypeHub)
	test.That(t, h.PortCount(), test.ShouldEqual, 2)
	test.That(t, h.InfoEx().Supported, test.ShouldBeTrue)
	test.That(t, h.InfoEx().HubType, test.ShouldEqual, usbioctl.HubTypeUsb30)
	test.That(t, h.CapabilitiesEx().Supported, test.ShouldBeTrue)
	test.That(t, h.CapabilitiesEx().IsRoot(), test.ShouldBeTrue)

	test.That(t, h.Connections(), test.ShouldHaveLength, 2)
	conn := h.Connections()[1]
	test.That(t, conn.Status, test.ShouldEqual, usb.DeviceConnected)
	test.That(t, conn.DeviceIsHub, test.ShouldBeFalse)
	test.That(t, conn.DriverKey, test.ShouldNotBeEmpty)
	test.That(t, h.Connections()[2].Status, test.ShouldEqual, usb.NoDeviceConnected)

	test.That(t, h.Ports(), test.ShouldHaveLength, 1)
	test.That(t, h.Ports()[1].Filled, test.ShouldBeTrue)
	test.That(t, h.Ports()[1].CompanionPortNumber, test.ShouldEqual, 9)

	test.That(t, h.Close(), test.ShouldBeNil)
	test.That(t, handle.Closed, test.ShouldBeTrue)
}

func TestHubPopulateMultiInterfaceParent(t *testing.T) {
	logger := golog.NewTestLogger(t)
	handle := fake.NewHub(0)
	handle.NodeInfo = usbioctl.NodeInformation{NodeType: usbioctl.NodeTypeMIParent, NumberOfInterfaces: 4}

	h := hub.NewFromTransport(transport.New(handle, logger), logger)
	test.That(t, h.Populate(), test.ShouldBeNil)
	test.That(t, h.Populated(), test.ShouldBeTrue)
	test.That(t, h.PortCount(), test.ShouldEqual, 0)
	test.That(t, h.NodeInfo().NumberOfInterfaces, test.ShouldEqual, 4)
	test.That(t, h.Connections(), test.ShouldBeEmpty)
}

func TestHubPopulateFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	handle := &inject.Handle{ControlFunc: func(code uint32, in, out []byte) (int, error) {
		return 0, errors.New("gone")
	}}
	h := hub.NewFromTransport(transport.New(handle, logger), logger)
	err := h.Populate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "hub node information")
	test.That(t, h.Populated(), test.ShouldBeFalse)
}

func TestFillConfigDescriptor(t *testing.T) {
	t.Run("usable strings and interface class", func(t *testing.T) {
		_, h := scriptedHub(t)
		test.That(t, h.Populate(), test.ShouldBeNil)

		conn := h.Connections()[1]
		test.That(t, h.FillConfigDescriptor(conn.DeviceDescriptor, 1, 0), test.ShouldBeNil)

		got := h.Strings()[1]
		test.That(t, got.InterfaceClass, test.ShouldEqual, usb.ClassMassStorage)
		test.That(t, got.Manufacturer, test.ShouldEqual, "Kingston")
		test.That(t, got.Product, test.ShouldEqual, "DataTraveler 3.0")
		test.That(t, got.SerialNumber, test.ShouldEqual, "E0D55EA574DCF0A0")
	})

	t.Run("unusable descriptors record class only", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		handle := fake.NewHub(1)
		mute := flashDriveDescriptor()
		mute.ManufacturerIndex = 0
		mute.ProductIndex = 0
		mute.SerialNumberIndex = 0
		handle.AddPort(1, &fake.Port{
			Connection: usbioctl.NodeConnectionInformationEx{
				DeviceDescriptor: mute,
				ConnectionStatus: usb.DeviceConnected,
			},
			DriverKey: "key",
			Config:    configChain(0, 0),
			Strings: map[uint16]map[uint8][]byte{
				usb.DefaultLanguageID: {1: fake.StringDescriptor("Should Not Appear")},
			},
		})

		h := hub.NewFromTransport(transport.New(handle, logger), logger)
		test.That(t, h.Populate(), test.ShouldBeNil)
		test.That(t, h.FillConfigDescriptor(mute, 1, 0), test.ShouldBeNil)

		got := h.Strings()[1]
		test.That(t, got.InterfaceClass, test.ShouldEqual, usb.ClassMassStorage)
		test.That(t, got.Manufacturer, test.ShouldBeEmpty)
		test.That(t, got.Product, test.ShouldBeEmpty)
		test.That(t, got.SerialNumber, test.ShouldBeEmpty)
	})

	t.Run("chain string index makes descriptors usable", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		handle := fake.NewHub(1)
		mute := flashDriveDescriptor()
		mute.ManufacturerIndex = 0
		mute.ProductIndex = 0
		mute.SerialNumberIndex = 0
		handle.AddPort(1, &fake.Port{
			Connection: usbioctl.NodeConnectionInformationEx{
				DeviceDescriptor: mute,
				ConnectionStatus: usb.DeviceConnected,
			},
			DriverKey: "key",
			Config:    configChain(0, 4),
		})

		h := hub.NewFromTransport(transport.New(handle, logger), logger)
		test.That(t, h.Populate(), test.ShouldBeNil)
		test.That(t, h.FillConfigDescriptor(mute, 1, 0), test.ShouldBeNil)

		// usable, but the device names no indexes, so the strings stay empty
		got := h.Strings()[1]
		test.That(t, got.InterfaceClass, test.ShouldEqual, usb.ClassMassStorage)
		test.That(t, got.Manufacturer, test.ShouldBeEmpty)
	})

	t.Run("no config descriptor still fetches strings", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		handle := fake.NewHub(1)
		port := handle.AddPort(1, &fake.Port{
			Connection: usbioctl.NodeConnectionInformationEx{
				DeviceDescriptor: flashDriveDescriptor(),
				ConnectionStatus: usb.DeviceConnected,
			},
			DriverKey: "key",
		})
		port.WithStrings(usb.DefaultLanguageID, "Kingston", "DataTraveler 3.0", "")

		h := hub.NewFromTransport(transport.New(handle, logger), logger)
		test.That(t, h.Populate(), test.ShouldBeNil)
		test.That(t, h.FillConfigDescriptor(flashDriveDescriptor(), 1, 0), test.ShouldBeNil)

		got := h.Strings()[1]
		test.That(t, got.InterfaceClass, test.ShouldEqual, usb.ClassVendorSpecific)
		test.That(t, got.Manufacturer, test.ShouldEqual, "Kingston")
		test.That(t, got.Product, test.ShouldEqual, "DataTraveler 3.0")
		test.That(t, got.SerialNumber, test.ShouldBeEmpty)
	})
}

func TestDescriptorsUsable(t *testing.T) {
	indexed := flashDriveDescriptor()
	mute := flashDriveDescriptor()
	mute.ManufacturerIndex = 0
	mute.ProductIndex = 0
	mute.SerialNumberIndex = 0

	broken := configChain(0, 4)
	broken[descriptor.ConfigSize] = 8 // interface descriptor with a bogus length

	for _, tc := range []struct {
		name   string
		dev    descriptor.Device
		config []byte
		want   bool
	}{
		{"device indexes suffice", indexed, nil, true},
		{"chain interface index", mute, configChain(0, 4), true},
		{"chain config index", mute, configChain(5, 0), true},
		{"no indexes anywhere", mute, configChain(0, 0), false},
		{"no config at all", mute, nil, false},
		{"malformed chain", mute, broken, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, hub.DescriptorsUsable(tc.dev, tc.config), test.ShouldEqual, tc.want)
		})
	}
}

func TestAllStringDescriptors(t *testing.T) {
	logger := golog.NewTestLogger(t)

	t.Run("invalid connection index", func(t *testing.T) {
		_, h := scriptedHub(t)
		_, err := h.AllStringDescriptors(0, flashDriveDescriptor())
		test.That(t, errors.Is(err, transport.ErrInvalidArgument), test.ShouldBeTrue)
	})

	t.Run("language list fallback", func(t *testing.T) {
		handle := fake.NewHub(1)
		handle.AddPort(1, &fake.Port{
			Connection: usbioctl.NodeConnectionInformationEx{DeviceDescriptor: flashDriveDescriptor()},
			// no language list scripted; strings live under the default language
			Strings: map[uint16]map[uint8][]byte{
				usb.DefaultLanguageID: {
					1: fake.StringDescriptor("Fallback Corp"),
					2: fake.StringDescriptor("Widget"),
				},
			},
		})
		h := hub.NewFromTransport(transport.New(handle, logger), logger)

		found, err := h.AllStringDescriptors(1, flashDriveDescriptor())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, found.Manufacturer, test.ShouldEqual, "Fallback Corp")
		test.That(t, found.Product, test.ShouldEqual, "Widget")
		test.That(t, found.SerialNumber, test.ShouldBeEmpty)
	})

	t.Run("first advertised language wins", func(t *testing.T) {
		handle := fake.NewHub(1)
		handle.AddPort(1, &fake.Port{
			Connection: usbioctl.NodeConnectionInformationEx{DeviceDescriptor: flashDriveDescriptor()},
			Strings: map[uint16]map[uint8][]byte{
				0:                     {0: fake.LanguageList(0x0407, usb.DefaultLanguageID)},
				0x0407:                {2: fake.StringDescriptor("Büro-Gerät")},
				usb.DefaultLanguageID: {2: fake.StringDescriptor("Office Device")},
			},
		})
		h := hub.NewFromTransport(transport.New(handle, logger), logger)

		found, err := h.AllStringDescriptors(1, flashDriveDescriptor())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, found.Product, test.ShouldEqual, "Büro-Gerät")
	})
}

func TestExternalHubName(t *testing.T) {
	logger := golog.NewTestLogger(t)
	handle := fake.NewHub(1)
	handle.AddPort(1, &fake.Port{HubName: `USB#VID_2109&PID_0817#7&2d5a7c6&0&4`})
	h := hub.NewFromTransport(transport.New(handle, logger), logger)

	name, err := h.ExternalHubName(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, name, test.ShouldEqual, `USB#VID_2109&PID_0817#7&2d5a7c6&0&4`)
}
