//go:build windows

package transport

import (
	"golang.org/x/sys/windows"
)

// deviceHandle is a real kernel device handle.
type deviceHandle struct {
	handle windows.Handle
}

// openHandle opens a device path with the access and sharing mode the hub
// driver expects.
func openHandle(path string) (Handle, error) {
	pathW, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		pathW,
		windows.GENERIC_WRITE,
		windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, err
	}
	return &deviceHandle{handle: h}, nil
}

func (d *deviceHandle) Control(code uint32, in, out []byte) (int, error) {
	var inPtr, outPtr *byte
	if len(in) > 0 {
		inPtr = &in[0]
	}
	if len(out) > 0 {
		outPtr = &out[0]
	}
	var returned uint32
	err := windows.DeviceIoControl(d.handle, code, inPtr, uint32(len(in)), outPtr, uint32(len(out)), &returned, nil)
	if err != nil {
		return 0, err
	}
	return int(returned), nil
}

func (d *deviceHandle) Close() error {
	return windows.CloseHandle(d.handle)
}
