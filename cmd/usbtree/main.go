// Package main is the usbtree CLI command itself.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/usbtree/devinfo"
	"go.viam.com/usbtree/discovery"
	"go.viam.com/usbtree/serial"
	"go.viam.com/usbtree/usbid"
	"go.viam.com/usbtree/utils"
)

const (
	// Flags.
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagClass       = "class"
	flagMassStorage = "mass-storage"
	flagFormat      = "format"
	flagType        = "type"

	formatText = "text"
	formatJSON = "json"
)

// profile is the optional JSON5 configuration file named by --config.
type profile struct {
	// MaxDepth bounds hub nesting during the walk; 0 keeps the default.
	MaxDepth int `json:"max_depth"`

	// Concurrent walks each host controller on its own goroutine.
	Concurrent bool `json:"concurrent"`

	// USBIDs names a usb.ids file to use in place of the embedded
	// vendor snapshot.
	USBIDs string `json:"usb_ids"`
}

func main() {
	var logger golog.Logger
	var prof profile

	app := &cli.App{
		Name:            "usbtree",
		Usage:           "inspect the machine's USB devices",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case c.String(flagLogFile) != "":
				logger = newFileLogger(c.String(flagLogFile))
			case c.Bool(flagDebug):
				logger = golog.NewDebugLogger("cli")
			default:
				logger = zap.NewNop().Sugar()
			}

			if path := c.String(flagConfig); path != "" {
				loaded, err := loadProfile(path)
				if err != nil {
					return err
				}
				prof = loaded
			}
			if prof.USBIDs != "" {
				if err := loadVendorData(prof.USBIDs); err != nil {
					return errors.Wrap(err, "load usb id data")
				}
			}

			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "tree",
				Usage: "print every attached USB device with its details",
				Action: func(c *cli.Context) error {
					devices, err := enumerateUSB(c.Context, logger, prof)
					if err != nil && len(devices) == 0 {
						return err
					}
					if err != nil {
						fmt.Fprintf(c.App.ErrWriter, "some devices were skipped: %v\n", err)
					}
					renderDeviceTree(c.App.Writer, devices)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "print attached devices as a table",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagClass,
						Usage: "list devices of this setup class `GUID` instead",
					},
					&cli.BoolFlag{
						Name:  flagMassStorage,
						Usage: "list only mass storage devices",
					},
					&cli.StringFlag{
						Name:  flagFormat,
						Value: formatText,
						Usage: "output format, text or json",
					},
				},
				Action: func(c *cli.Context) error {
					var devices []discovery.Device
					var err error
					switch {
					case c.String(flagClass) != "":
						var setupClass uuid.UUID
						setupClass, err = utils.ParseWindowsGUID(c.String(flagClass))
						if err != nil {
							return err
						}
						devices, err = enumerateByClass(c.Context, logger, prof, setupClass)
					case c.Bool(flagMassStorage):
						devices, err = enumerateMassStorage(c.Context, logger, prof)
					default:
						devices, err = enumerateUSB(c.Context, logger, prof)
					}
					if err != nil && len(devices) == 0 {
						return err
					}
					if err != nil {
						fmt.Fprintf(c.App.ErrWriter, "some devices were skipped: %v\n", err)
					}

					switch c.String(flagFormat) {
					case formatJSON:
						md, err := json.MarshalIndent(devices, "", "  ")
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, string(md))
					case formatText:
						renderDeviceTable(c.App.Writer, devices)
					default:
						return errors.Errorf("unknown format %q", c.String(flagFormat))
					}
					return nil
				},
			},
			{
				Name:      "vendors",
				Usage:     "look up vendor and product names by id",
				ArgsUsage: "<vid | vid:pid> ...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.New("provide at least one vendor id")
					}
					for _, arg := range c.Args().Slice() {
						name, err := describeIdentity(arg)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "%s\t%s\n", arg, name)
					}
					return nil
				},
			},
			{
				Name:  "serial",
				Usage: "list serial ports of recognized usb-serial adapters",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagType,
						Usage: "list only adapters of this `TYPE`",
					},
				},
				Action: func(c *cli.Context) error {
					filter := serial.SearchFilter{Type: serial.Type(c.String(flagType))}
					t := table.NewWriter()
					t.AppendHeader(table.Row{"Type", "Path"})
					for _, desc := range serial.Search(filter) {
						t.AppendRow([]interface{}{string(desc.Type), desc.Path})
					}
					fmt.Fprintln(c.App.Writer, t.Render())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newFileLogger logs debug and up to path, rotating the file as it grows.
func newFileLogger(path string) golog.Logger {
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1024,
		MaxBackups: 2,
		Compress:   true,
	}
	config := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.AddSync(sink), zap.DebugLevel)
	return zap.New(core).Sugar().Named("cli")
}

func loadProfile(path string) (profile, error) {
	var prof profile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile{}, err
	}
	if err := json5.Unmarshal(data, &prof); err != nil {
		return profile{}, errors.Wrapf(err, "unable to parse profile %s", path)
	}
	return prof, nil
}

func loadVendorData(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return usbid.LoadFromReader(f)
}

// describeIdentity resolves a "vid" or "vid:pid" hex argument against the
// vendor database.
func describeIdentity(arg string) (string, error) {
	vendorPart, productPart, hasProduct := strings.Cut(arg, ":")
	vendorID, err := strconv.ParseUint(vendorPart, 16, 16)
	if err != nil {
		return "", errors.Errorf("invalid vendor id %q", arg)
	}
	if !hasProduct {
		return usbid.VendorName(uint16(vendorID)), nil
	}
	productID, err := strconv.ParseUint(productPart, 16, 16)
	if err != nil {
		return "", errors.Errorf("invalid product id %q", arg)
	}
	return usbid.Describe(uint16(vendorID), uint16(productID)), nil
}

func renderDeviceTree(w io.Writer, devices []discovery.Device) {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	for _, dev := range devices {
		l.AppendItem(dev.String())
		l.Indent()
		if dev.VendorName != "" && dev.VendorName != usbid.UnknownName {
			l.AppendItem("vendor: " + dev.VendorName)
		}
		if dev.Manufacturer != "" {
			l.AppendItem("manufacturer: " + dev.Manufacturer)
		}
		if dev.SerialNumber != "" {
			l.AppendItem("serial: " + dev.SerialNumber)
		}
		if dev.InterfaceClassName != "" {
			l.AppendItem("class: " + dev.InterfaceClassName)
		}
		if dev.FriendlyName != "" {
			l.AppendItem("registry name: " + dev.FriendlyName)
		}
		if dev.PowerState != devinfo.PowerStateUnspecified {
			l.AppendItem("power: " + dev.PowerState.String())
		}
		if dev.DevicePath != "" {
			l.AppendItem("path: " + dev.DevicePath)
		}
		l.UnIndent()
	}
	fmt.Fprintln(w, l.Render())
}

func renderDeviceTable(w io.Writer, devices []discovery.Device) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"VID", "PID", "Vendor", "Product", "Class", "Power", "Serial"})
	for _, dev := range devices {
		product := dev.Product
		if product == "" {
			product = dev.Description
		}
		t.AppendRow([]interface{}{
			fmt.Sprintf("%04x", dev.VendorID),
			fmt.Sprintf("%04x", dev.ProductID),
			dev.VendorName,
			product,
			dev.InterfaceClassName,
			dev.PowerState.String(),
			dev.SerialNumber,
		})
	}
	fmt.Fprintln(w, t.Render())
}
