package mcp47x6

import (
	"fmt"
	"strings"
)

// Variant identifies the device model, which determines the resolution of
// the output level.
type Variant byte

// Constants for the supported device models.
const (
	MCP4706 Variant = iota // 8-bit
	MCP4716                // 10-bit
	MCP4726                // 12-bit
)

var variantNames = []string{"MCP4706", "MCP4716", "MCP4726"}

func (v Variant) String() string { return name(variantNames, byte(v), "Variant") }

// ParseVariant returns the Variant named by s, e.g. "MCP4726" or "mcp4716".
func ParseVariant(s string) (Variant, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range variantNames {
		if n == s {
			return Variant(i), nil
		}
	}
	return MCP4726, fmt.Errorf("invalid variant: %q (must be one of: %s)", s, strings.Join(variantNames, ", "))
}

// Resolution returns the number of significant output bits.
func (v Variant) Resolution() uint {
	switch v {
	case MCP4706:
		return 8
	case MCP4716:
		return 10
	default:
		return 12
	}
}

// Mask returns the mask applied to a 12-bit level before transmission; the
// least-significant bits not resolved by the variant are forced to zero.
func (v Variant) Mask() uint16 {
	return MaxLevel &^ (1<<(12-v.Resolution()) - 1)
}

// Level returns the given 12-bit level rounded down to the nearest step the
// variant can resolve. Bits above the 12-bit range are discarded.
func (v Variant) Level(level uint16) uint16 {
	return level & v.Mask()
}

// LevelBytes returns the level as transmitted on the wire. The 10- and 12-bit
// variants send the upper byte followed by the lower byte. The 8-bit variant
// sends a single byte holding its 8-bit code.
func (v Variant) LevelBytes(level uint16) []byte {
	level = v.Level(level)
	if MCP4706 == v {
		return []byte{byte(level >> 4)}
	}
	return []byte{byte(level >> 8), byte(level & 0xFF)}
}
