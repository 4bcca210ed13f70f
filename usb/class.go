package usb

// Class is a USB base class code, found in bDeviceClass of a device
// descriptor or bInterfaceClass of an interface descriptor.
// See https://www.usb.org/defined-class-codes.
type Class uint8

// USB base class codes.
const (
	ClassPerInterface        Class = 0x00
	ClassAudio               Class = 0x01
	ClassCDCControl          Class = 0x02
	ClassHID                 Class = 0x03
	ClassPhysical            Class = 0x05
	ClassImage               Class = 0x06
	ClassPrinter             Class = 0x07
	ClassMassStorage         Class = 0x08
	ClassHub                 Class = 0x09
	ClassCDCData             Class = 0x0a
	ClassSmartCard           Class = 0x0b
	ClassContentSecurity     Class = 0x0d
	ClassVideo               Class = 0x0e
	ClassPersonalHealthcare  Class = 0x0f
	ClassAudioVideo          Class = 0x10
	ClassBillboard           Class = 0x11
	ClassTypeCBridge         Class = 0x12
	ClassBulkDisplay         Class = 0x13
	ClassMCTP                Class = 0x14
	ClassI3C                 Class = 0x3c
	ClassDiagnostic          Class = 0xdc
	ClassWirelessController  Class = 0xe0
	ClassMiscellaneous       Class = 0xef
	ClassApplicationSpecific Class = 0xfe
	ClassVendorSpecific      Class = 0xff
)

var classNames = map[Class]string{
	ClassPerInterface:        "Interface class device",
	ClassAudio:               "Audio",
	ClassCDCControl:          "Communications and CDC Control",
	ClassHID:                 "HID (Human Interface Device)",
	ClassPhysical:            "Physical",
	ClassImage:               "Image",
	ClassPrinter:             "Printer",
	ClassMassStorage:         "Mass Storage",
	ClassHub:                 "Hub",
	ClassCDCData:             "CDC-Data",
	ClassSmartCard:           "Smart Card",
	ClassContentSecurity:     "Content Security",
	ClassVideo:               "Video",
	ClassPersonalHealthcare:  "Personal Healthcare",
	ClassAudioVideo:          "Audio/Video Devices",
	ClassBillboard:           "Billboard Device Class",
	ClassTypeCBridge:         "USB Type - C Bridge Class",
	ClassBulkDisplay:         "USB Bulk Display Protocol Device Class",
	ClassMCTP:                "MCTP over USB Protocol Endpoint Device Class",
	ClassI3C:                 "I3C Device Class",
	ClassDiagnostic:          "Diagnostic Device",
	ClassWirelessController:  "Wireless Controller",
	ClassMiscellaneous:       "Miscellaneous",
	ClassApplicationSpecific: "Application Specific",
	ClassVendorSpecific:      "Vendor Specific",
}

// Name returns a human readable name for the class. Every value maps to a
// non-empty name; codes with no registered name report "Unknown".
func (c Class) Name() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "Unknown"
}

// IsMassStorage reports whether the class is the mass storage class.
func (c Class) IsMassStorage() bool {
	return c == ClassMassStorage
}

// IsDataTransfer reports whether devices of the class can move files or
// arbitrary data between the host and the device.
func (c Class) IsDataTransfer() bool {
	switch c {
	case ClassMassStorage, ClassCDCControl, ClassCDCData, ClassImage, ClassPrinter, ClassWirelessController:
		return true
	default:
		return false
	}
}
