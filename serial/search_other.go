//go:build !windows && !linux

package serial

// Search has no serial device sources to scan on this platform.
func Search(filter SearchFilter) []Description {
	return nil
}
