// Package serial finds the serial ports USB serial adapters expose and
// opens them.
package serial

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ser "go.bug.st/serial"
)

// Description describes a specific serial device.
type Description struct {
	Type Type
	Path string
}

// Type identifies a specific serial device type, like an arduino.
type Type string

// The known device types.
const (
	TypeUnknown    = "unknown"
	TypeArduino    = "arduino"
	TypeFTDI       = "ftdi"
	TypeCP210x     = "cp210x"
	TypeNumatoGPIO = "numato-gpio"
	TypeJetson     = "nvidia-jetson"
)

// SearchFilter restricts a Search to one device type. The zero value
// matches every recognized type.
type SearchFilter struct {
	Type Type
}

// typeForVendor classifies a USB vendor id as a known serial adapter
// maker.
func typeForVendor(vendorID int) Type {
	switch vendorID {
	case 0x2341:
		return TypeArduino
	case 0x0403:
		return TypeFTDI
	case 0x10c4:
		return TypeCP210x
	case 0x2a19:
		return TypeNumatoGPIO
	}
	return TypeUnknown
}

// vendorFromHardwareID pulls the USB vendor id out of a registry hardware
// id such as "USB\VID_2341&PID_0043".
func vendorFromHardwareID(hardwareID string) int {
	upper := strings.ToUpper(hardwareID)
	idx := strings.Index(upper, "VID_")
	if idx == -1 || len(upper) < idx+8 {
		return 0
	}
	vendorID, err := strconv.ParseInt(upper[idx+4:idx+8], 16, 32)
	if err != nil {
		return 0
	}
	return int(vendorID)
}

// comPortName extracts the COM port a ports class record answers to, from
// the "(COMn)" suffix convention of its friendly name.
func comPortName(friendlyName string) string {
	start := strings.LastIndex(friendlyName, "(COM")
	if start == -1 {
		return ""
	}
	end := strings.Index(friendlyName[start:], ")")
	if end == -1 {
		return ""
	}
	port := friendlyName[start+1 : start+end]
	if len(port) <= len("COM") {
		return ""
	}
	for _, r := range port[len("COM"):] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return port
}

// Options to be passed to Open(), closely mirrors goserial.OpenOptions.
type Options struct {
	BaudRate          int
	DataBits          int
	StopBits          StopBits
	RTSCTSFlowControl bool
	ReadTimeout       int
	Parity            Parity
}

// Parity describes a serial port parity setting.
type Parity int

const (
	// NoParity disable parity control (default).
	NoParity Parity = iota
	// OddParity enable odd-parity check.
	OddParity
	// EvenParity enable even-parity check.
	EvenParity
	// MarkParity enable mark-parity (always 1) check.
	MarkParity
	// SpaceParity enable space-parity (always 0) check.
	SpaceParity
)

// StopBits describe a serial port stop bits setting.
type StopBits int

const (
	// OneStopBit sets 1 stop bit (default).
	OneStopBit StopBits = iota
	// OnePointFiveStopBits sets 1.5 stop bits.
	OnePointFiveStopBits
	// TwoStopBits sets 2 stop bits.
	TwoStopBits
)

// Open attempts to open a serial device on the given path. It's a variable
// in case you need to override it during tests.
var Open = func(devicePath string, options Options) (io.ReadWriteCloser, error) {
	mode := &ser.Mode{
		BaudRate: options.BaudRate,
		Parity:   ser.Parity(options.Parity),
		DataBits: options.DataBits,
		StopBits: ser.StopBits(options.StopBits),
	}

	device, err := ser.Open(devicePath, mode)
	if err != nil {
		return nil, err
	}
	err = device.SetReadTimeout(time.Duration(options.ReadTimeout) * time.Millisecond)
	if err != nil {
		return nil, err
	}

	return device, nil
}

// SetOptions to change the configuration of a serial port already open.
var SetOptions = func(b io.ReadWriteCloser, options Options) error {
	mode := &ser.Mode{
		BaudRate: options.BaudRate,
		Parity:   ser.Parity(options.Parity),
		DataBits: options.DataBits,
		StopBits: ser.StopBits(options.StopBits),
	}
	p, ok := b.(ser.Port)
	if !ok {
		return errors.New("couldn't convert to underlying Port interface")
	}
	err := p.SetMode(mode)
	if err != nil {
		return err
	}
	return nil
}
