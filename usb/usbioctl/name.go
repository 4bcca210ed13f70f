package usbioctl

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"go.viam.com/usbtree/utils"
)

// NodeConnectionName is the two phase reply shape shared by the port
// connection name and driver key name queries: a probe fills ActualLength,
// a second fetch of that many bytes carries the name.
type NodeConnectionName struct {
	ConnectionIndex uint32
	ActualLength    uint32
	Name            string
}

// NodeConnectionNameFixedSize is the probe size of the reply.
const NodeConnectionNameFixedSize = 10

// name bytes start after the two leading ULONGs.
const nodeConnectionNameOffset = 8

// DecodeNodeConnectionName parses a probe or full reply.
func DecodeNodeConnectionName(b []byte) (NodeConnectionName, error) {
	if len(b) < NodeConnectionNameFixedSize {
		return NodeConnectionName{}, errors.Errorf("connection name needs %d bytes; got %d",
			NodeConnectionNameFixedSize, len(b))
	}
	n := NodeConnectionName{
		ConnectionIndex: binary.LittleEndian.Uint32(b),
		ActualLength:    binary.LittleEndian.Uint32(b[4:]),
	}
	nameEnd := int(n.ActualLength)
	if nameEnd > len(b) {
		nameEnd = len(b)
	}
	if nameEnd > nodeConnectionNameOffset {
		name, err := utils.DecodeUTF16LEUntilNul(b[nodeConnectionNameOffset:nameEnd])
		if err != nil {
			return NodeConnectionName{}, err
		}
		n.Name = name
	}
	return n, nil
}

// Encode renders the full reply; ActualLength is computed from the name.
func (n NodeConnectionName) Encode() []byte {
	name := utils.EncodeUTF16LE(n.Name)
	total := nodeConnectionNameOffset + len(name) + 2
	if total < NodeConnectionNameFixedSize {
		total = NodeConnectionNameFixedSize
	}
	b := make([]byte, total)
	binary.LittleEndian.PutUint32(b, n.ConnectionIndex)
	binary.LittleEndian.PutUint32(b[4:], uint32(total))
	copy(b[nodeConnectionNameOffset:], name)
	return b
}

// HcdName is the reply shape shared by the root hub name and HCD driver key
// queries against a controller handle.
type HcdName struct {
	ActualLength uint32
	Name         string
}

// HcdNameFixedSize is the probe size of the reply.
const HcdNameFixedSize = 6

// name bytes start after the leading ULONG.
const hcdNameOffset = 4

// DecodeHcdName parses a probe or full reply.
func DecodeHcdName(b []byte) (HcdName, error) {
	if len(b) < HcdNameFixedSize {
		return HcdName{}, errors.Errorf("controller name needs %d bytes; got %d", HcdNameFixedSize, len(b))
	}
	n := HcdName{ActualLength: binary.LittleEndian.Uint32(b)}
	nameEnd := int(n.ActualLength)
	if nameEnd > len(b) {
		nameEnd = len(b)
	}
	if nameEnd > hcdNameOffset {
		name, err := utils.DecodeUTF16LEUntilNul(b[hcdNameOffset:nameEnd])
		if err != nil {
			return HcdName{}, err
		}
		n.Name = name
	}
	return n, nil
}

// Encode renders the full reply; ActualLength is computed from the name.
func (n HcdName) Encode() []byte {
	name := utils.EncodeUTF16LE(n.Name)
	total := hcdNameOffset + len(name) + 2
	if total < HcdNameFixedSize {
		total = HcdNameFixedSize
	}
	b := make([]byte, total)
	binary.LittleEndian.PutUint32(b, uint32(total))
	copy(b[hcdNameOffset:], name)
	return b
}
