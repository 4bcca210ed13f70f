//go:build windows

package serial

import (
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	goutils "go.viam.com/utils"

	"go.viam.com/usbtree/devinfo"
)

// classPorts is the device setup class of COM and LPT ports.
var classPorts = uuid.MustParse("4d36e978-e325-11ce-bfc1-08002be10318")

// openSource is how Search reaches the registry; a variable for tests.
var openSource = devinfo.NewSystemSource

// Search finds serial devices of the recognized types through the ports
// device class, identifying adapters by the vendor in their hardware id.
func Search(filter SearchFilter) []Description {
	source, err := openSource(golog.Global())
	if err != nil {
		return nil
	}
	defer goutils.UncheckedErrorFunc(source.Close)

	records, err := source.Records(devinfo.Filter{Class: classPorts, PresentOnly: true})
	if err != nil {
		return nil
	}
	var results []Description
	for _, record := range records {
		port := comPortName(record.FriendlyName)
		if port == "" {
			continue
		}
		deviceType := typeForVendor(vendorFromHardwareID(record.HardwareID))
		if deviceType == TypeUnknown {
			continue
		}
		if filter.Type != "" && filter.Type != deviceType {
			continue
		}
		results = append(results, Description{Type: deviceType, Path: port})
	}
	return results
}
