// Package usbid translates USB vendor, product, and class numbers into the
// names published in the usb.ids database.
//
// A trimmed snapshot of the database ships embedded; LoadFromReader swaps in
// a fuller copy at runtime.
package usbid

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/usb"
)

// Vendor is one vendor block of the database.
type Vendor struct {
	Name    string
	Product map[uint16]*Product
}

func (v Vendor) String() string {
	return v.Name
}

// Product is one product line of a vendor block.
type Product struct {
	Name      string
	Interface map[uint8]string
}

func (p Product) String() string {
	return p.Name
}

// Class is one class block of the database.
type Class struct {
	Name     string
	SubClass map[uint8]*SubClass
}

func (c Class) String() string {
	return c.Name
}

// SubClass is one subclass line of a class block.
type SubClass struct {
	Name     string
	Protocol map[uint8]string
}

func (s SubClass) String() string {
	return s.Name
}

// splitLine takes apart one database line: an optional kind token, tabs for
// nesting depth, a hex id, two spaces, and the name.
func splitLine(s string) (kind string, level int, id uint64, name string, err error) {
	pieces := strings.SplitN(s, "  ", 2)
	if len(pieces) != 2 {
		err = errors.Errorf("malformatted line %q", s)
		return
	}
	name = pieces[1]

	for len(pieces[0]) > 0 && pieces[0][0] == '\t' {
		level, pieces[0] = level+1, pieces[0][1:]
	}

	first := strings.SplitN(pieces[0], " ", 2)
	if len(first) == 2 {
		kind, pieces[0] = first[0], first[1]
	}

	id, err = strconv.ParseUint(pieces[0], 16, 16)
	if err != nil {
		err = errors.Errorf("malformatted id %q: %v", pieces[0], err)
	}
	return
}

// ParseIDs parses a usb.ids formatted database from r. Sections other than
// the vendor and class listings are skipped.
func ParseIDs(r io.Reader) (map[uint16]*Vendor, map[usb.Class]*Class, error) {
	vendors := make(map[uint16]*Vendor, 2800)
	classes := make(map[usb.Class]*Class)

	var vendor *Vendor
	var device *Product
	addVendorLine := func(level int, id uint64, name string) error {
		switch level {
		case 0:
			vendor = &Vendor{Name: name}
			vendors[uint16(id)] = vendor
			device = nil
		case 1:
			if vendor == nil {
				return errors.New("product line without a vendor")
			}
			device = &Product{Name: name}
			if vendor.Product == nil {
				vendor.Product = make(map[uint16]*Product)
			}
			vendor.Product[uint16(id)] = device
		case 2:
			if device == nil {
				return errors.New("interface line without a product")
			}
			if device.Interface == nil {
				device.Interface = make(map[uint8]string)
			}
			device.Interface[uint8(id)] = name
		default:
			return errors.Errorf("vendor block nested %d deep", level)
		}
		return nil
	}

	var class *Class
	var subclass *SubClass
	addClassLine := func(level int, id uint64, name string) error {
		switch level {
		case 0:
			class = &Class{Name: name}
			classes[usb.Class(id)] = class
			subclass = nil
		case 1:
			if class == nil {
				return errors.New("subclass line without a class")
			}
			subclass = &SubClass{Name: name}
			if class.SubClass == nil {
				class.SubClass = make(map[uint8]*SubClass)
			}
			class.SubClass[uint8(id)] = subclass
		case 2:
			if subclass == nil {
				return errors.New("protocol line without a subclass")
			}
			if subclass.Protocol == nil {
				subclass.Protocol = make(map[uint8]string)
			}
			subclass.Protocol[uint8(id)] = name
		default:
			return errors.Errorf("class block nested %d deep", level)
		}
		return nil
	}

	var kind string
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		k, level, id, name, err := splitLine(line)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", lineno)
		}
		if k != "" {
			kind = k
		}
		switch kind {
		case "":
			err = addVendorLine(level, id, name)
		case "C":
			err = addClassLine(level, id, name)
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", lineno)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return vendors, classes, nil
}
