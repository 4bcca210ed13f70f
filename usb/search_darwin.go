//go:build darwin

package usb

import (
	"fmt"
	"os/exec"

	"howett.net/plist"
)

// SearchFilter describes a specific kind of USB device to look for as it
// pertains to macOS.
type SearchFilter struct {
	ioObjectClass string
	ioTTYBaseName string
}

// NewSearchFilter creates a new search filter with the given IOObjectClass and
// IOTTYBaseName. An empty IOTTYBaseName matches every device of the class.
func NewSearchFilter(ioObjectClass, ioTTYBaseName string) SearchFilter {
	return SearchFilter{
		ioObjectClass: ioObjectClass,
		ioTTYBaseName: ioTTYBaseName,
	}
}

// SearchCmd is the actual system command to run; it is normally ioreg.
var SearchCmd = func(ioObjectClass string) []byte {
	cmd := exec.Command("ioreg", "-r", "-c", ioObjectClass, "-a", "-l")
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	return out
}

// Search uses macOS io device APIs to find all applicable USB devices.
func Search(filter SearchFilter, includeDevice func(vendorID, productID int) bool) []Description {
	if includeDevice == nil {
		return nil
	}
	ioObjectClass := filter.ioObjectClass
	if ioObjectClass == "" {
		ioObjectClass = "IOUSBHostDevice"
	}
	out := SearchCmd(ioObjectClass)
	if len(out) == 0 {
		return nil
	}
	var data []map[string]interface{}
	if _, err := plist.Unmarshal(out, &data); err != nil {
		return nil
	}
	var results []Description
	for _, device := range data {
		if filter.ioTTYBaseName != "" && device["IOTTYBaseName"] != filter.ioTTYBaseName {
			continue
		}
		idVendor, ok := device["idVendor"].(uint64)
		if !ok {
			continue
		}
		idProduct, ok := device["idProduct"].(uint64)
		if !ok {
			continue
		}
		vendorID, productID := int(idVendor), int(idProduct)
		if !includeDevice(vendorID, productID) {
			continue
		}

		devicePath := dialinDevicePath(device)
		if devicePath == "" {
			if locationID, ok := device["locationID"].(uint64); ok {
				devicePath = fmt.Sprintf("0x%08x", locationID)
			}
		}
		if filter.ioTTYBaseName != "" && devicePath == "" {
			continue
		}
		results = append(results, Description{
			ID: Identifier{
				Vendor:  vendorID,
				Product: productID,
			},
			Path: devicePath,
		})
	}
	return results
}

// dialinDevicePath digs the callin device node out of a registry entry's
// children, if it has one.
func dialinDevicePath(device map[string]interface{}) string {
	children, ok := device["IORegistryEntryChildren"].([]interface{})
	if !ok {
		return ""
	}
	for _, child := range children {
		childM, ok := child.(map[string]interface{})
		if !ok {
			continue
		}
		dialinDevice, ok := childM["IODialinDevice"].(string)
		if !ok {
			continue
		}
		if dialinDevice != "" {
			return dialinDevice
		}
	}
	return ""
}
