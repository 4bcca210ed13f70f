//go:build linux

package usb

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SearchFilter describes a specific kind of USB device to look for. It has
// no parameters on linux; all attached devices are candidates.
type SearchFilter struct{}

// SysPaths are the sysfs directories searched for attached USB devices.
var SysPaths = []string{"/sys/bus/usb/devices", "/sys/bus/usb-serial/devices"}

// Search uses linux sysfs to find all applicable USB devices.
func Search(filter SearchFilter, includeDevice func(vendorID, productID int) bool) []Description {
	if includeDevice == nil {
		return nil
	}
	var results []Description
	seen := map[string]struct{}{}
	for _, sysPath := range SysPaths {
		entries, err := os.ReadDir(sysPath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			devicePath, err := filepath.EvalSymlinks(filepath.Join(sysPath, entry.Name()))
			if err != nil {
				continue
			}
			id, identityPath, ok := readDeviceIdentity(devicePath, true)
			if !ok {
				// usb-serial entries are interface or tty directories; the
				// identity lives one level up.
				id, identityPath, ok = readDeviceIdentity(filepath.Dir(devicePath), false)
			}
			if !ok {
				continue
			}
			if _, dup := seen[identityPath]; dup {
				continue
			}
			if !includeDevice(id.Vendor, id.Product) {
				continue
			}
			seen[identityPath] = struct{}{}
			results = append(results, Description{ID: id, Path: identityPath})
		}
	}
	return results
}

// readDeviceIdentity parses vendor and product IDs out of the uevent file in
// dir. Interface directories carry a PRODUCT line too, so when deviceOnly is
// set, directories with a DEVTYPE other than usb_device are rejected.
func readDeviceIdentity(dir string, deviceOnly bool) (Identifier, string, bool) {
	ueventFile, err := os.Open(filepath.Join(dir, "uevent"))
	if err != nil {
		return Identifier{}, "", false
	}
	defer ueventFile.Close()

	var id Identifier
	var found bool
	reader := bufio.NewReader(ueventFile)
	for {
		line, _, err := reader.ReadLine()
		if err != nil {
			break
		}
		lineStr := string(line)
		const devTypePrefix = "DEVTYPE="
		if strings.HasPrefix(lineStr, devTypePrefix) {
			if deviceOnly && strings.TrimPrefix(lineStr, devTypePrefix) != "usb_device" {
				return Identifier{}, "", false
			}
			continue
		}
		const productPrefix = "PRODUCT="
		if !strings.HasPrefix(lineStr, productPrefix) {
			continue
		}
		productInfoParts := strings.Split(strings.TrimPrefix(lineStr, productPrefix), "/")
		if len(productInfoParts) < 2 {
			continue
		}
		vendorID, err := strconv.ParseInt(productInfoParts[0], 16, 64)
		if err != nil {
			continue
		}
		productID, err := strconv.ParseInt(productInfoParts[1], 16, 64)
		if err != nil {
			continue
		}
		id = Identifier{Vendor: int(vendorID), Product: int(productID)}
		found = true
	}
	return id, dir, found
}
