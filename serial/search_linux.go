//go:build linux

package serial

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.viam.com/usbtree/usb"
)

// devPath is where tty device nodes live; a variable for tests.
var devPath = "/dev"

// Search finds serial devices of the recognized types: USB serial
// adapters through sysfs, plus the Jetson's built-in THS ports under
// devPath.
func Search(filter SearchFilter) []Description {
	var results []Description
	seen := map[string]struct{}{}
	for _, sysPath := range usb.SysPaths {
		entries, err := os.ReadDir(sysPath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			devicePath, err := filepath.EvalSymlinks(filepath.Join(sysPath, entry.Name()))
			if err != nil {
				continue
			}
			if _, dup := seen[devicePath]; dup {
				continue
			}
			seen[devicePath] = struct{}{}
			vendorID, ok := readVendor(devicePath)
			if !ok {
				continue
			}
			deviceType := typeForVendor(vendorID)
			if deviceType == TypeUnknown {
				continue
			}
			if filter.Type != "" && filter.Type != deviceType {
				continue
			}
			for _, name := range ttyNames(devicePath, entry.Name()) {
				results = append(results, Description{
					Type: deviceType,
					Path: filepath.Join("/dev", name),
				})
			}
		}
	}

	if filter.Type == "" || filter.Type == TypeJetson {
		results = append(results, searchJetson()...)
	}
	return results
}

// readVendor parses the USB vendor id out of the uevent file in dir, or
// failing that the one in its parent; usb-serial entries are interface
// directories and the identity lives one level up.
func readVendor(dir string) (int, bool) {
	if vendorID, ok := parseUevent(filepath.Join(dir, "uevent")); ok {
		return vendorID, true
	}
	return parseUevent(filepath.Join(filepath.Dir(dir), "uevent"))
}

func parseUevent(path string) (int, bool) {
	ueventFile, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer ueventFile.Close()

	reader := bufio.NewReader(ueventFile)
	for {
		line, _, err := reader.ReadLine()
		if err != nil {
			return 0, false
		}
		const productPrefix = "PRODUCT="
		lineStr := string(line)
		if !strings.HasPrefix(lineStr, productPrefix) {
			continue
		}
		productInfoParts := strings.Split(strings.TrimPrefix(lineStr, productPrefix), "/")
		if len(productInfoParts) < 2 {
			continue
		}
		vendorID, err := strconv.ParseInt(productInfoParts[0], 16, 32)
		if err != nil {
			continue
		}
		return int(vendorID), true
	}
}

// ttyNames lists the tty nodes a sysfs device directory announces. USB
// devices carry a tty subdirectory naming each node; usb-serial bus
// entries are themselves named after their node.
func ttyNames(devicePath, entryName string) []string {
	entries, err := os.ReadDir(filepath.Join(devicePath, "tty"))
	if err == nil && len(entries) > 0 {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		return names
	}
	if strings.HasPrefix(entryName, "tty") {
		return []string{entryName}
	}
	return nil
}

func searchJetson() []Description {
	entries, err := os.ReadDir(devPath)
	if err != nil {
		return nil
	}
	var results []Description
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "ttyTHS") {
			continue
		}
		results = append(results, Description{
			Type: TypeJetson,
			Path: filepath.Join(devPath, entry.Name()),
		})
	}
	return results
}
