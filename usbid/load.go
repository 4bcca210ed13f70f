package usbid

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"github.com/edaniels/golog"

	"go.viam.com/usbtree/usb"
)

// Trimmed snapshot of http://www.linux-usb.org/usb.ids.
//
//go:embed usb.ids
var embeddedIDs []byte

// Vendors holds the vendor and product name mappings in use.
var Vendors map[uint16]*Vendor

// Classes holds the class, subclass, and protocol name mappings in use.
var Classes map[usb.Class]*Class

func init() {
	if err := LoadFromReader(bytes.NewReader(embeddedIDs)); err != nil {
		golog.Global().Errorw("failed to parse embedded USB ID data", "error", err)
	}
}

// LoadFromReader replaces the mappings with ones parsed from r, usually a
// fuller usb.ids copy than the embedded snapshot. A failed parse leaves the
// current mappings in place.
func LoadFromReader(r io.Reader) error {
	vendors, classes, err := ParseIDs(r)
	if err != nil {
		return err
	}
	Vendors = vendors
	Classes = classes
	return nil
}

// UnknownName is reported when the database has no entry for a number.
const UnknownName = "Unknown"

// VendorName returns the vendor's registered name, or UnknownName.
func VendorName(vendorID uint16) string {
	vendor, ok := Vendors[vendorID]
	if !ok {
		return UnknownName
	}
	return vendor.Name
}

// Describe renders "Product (Vendor)" for a device identity, degrading to
// UnknownName for the parts the database lacks.
func Describe(vendorID, productID uint16) string {
	vendor, ok := Vendors[vendorID]
	if !ok {
		return fmt.Sprintf("%s %04x:%04x", UnknownName, vendorID, productID)
	}
	product, ok := vendor.Product[productID]
	if !ok {
		return fmt.Sprintf("%s (%s)", UnknownName, vendor)
	}
	return fmt.Sprintf("%s (%s)", product, vendor)
}

// Classify renders the usb.ids name for a class, subclass, protocol triple,
// as much of it as the database knows.
func Classify(class usb.Class, subClass, protocol uint8) string {
	c, ok := Classes[class]
	if !ok {
		return fmt.Sprintf("%s %02x.%02x.%02x", UnknownName, uint8(class), subClass, protocol)
	}
	s, ok := c.SubClass[subClass]
	if !ok {
		return c.Name
	}
	p, ok := s.Protocol[protocol]
	if !ok {
		return fmt.Sprintf("%s (%s)", c, s)
	}
	return fmt.Sprintf("%s (%s) %s", c, s, p)
}
