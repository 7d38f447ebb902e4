package mcp47x6

import (
	"fmt"
	"strings"
)

// VRef selects the voltage reference of the DAC resistor ladder.
type VRef byte

// Constants for enumerated reference voltage sources.
const (
	VRefVddUnbuffered VRef = iota // Vdd (unbuffered)
	VRefUnbuffered                // VREF pin (unbuffered)
	VRefBuffered                  // VREF pin (buffered)
)

// Gain selects the output amplifier gain. Gain is ignored by the device when
// VRefVddUnbuffered is selected.
type Gain byte

// Constants for enumerated gain values.
const (
	GainX1 Gain = iota
	GainX2
)

// PowerDown selects between normal operation and one of the power-down
// states, in which the output is pulled down through a resistor.
type PowerDown byte

// Constants for enumerated power-down modes.
const (
	PowerNormal   PowerDown = iota // not powered down
	PowerDown1k                    // 1 kΩ to ground
	PowerDown100k                  // 100 kΩ to ground
	PowerDown500k                  // 500 kΩ to ground
)

// MemoryWrite selects which device memory a write command affects.
type MemoryWrite byte

// Constants for enumerated memory-write targets.
const (
	WriteVolatileDAC     MemoryWrite = iota // volatile DAC register
	WriteVolatileCommand                    // volatile memory (config and DAC)
	WriteAllMemory                          // volatile and non-volatile memory
	WriteVolatileConfig                     // volatile configuration bits only
)

// Command register bit positions, least-significant first.
const (
	bitG     = 0
	bitPD0   = 1
	bitPD1   = 2
	bitVREF0 = 3
	bitVREF1 = 4
	bitC0    = 5
	bitC1    = 6
	bitC2    = 7
)

// Field masks and shifts within the command register.
const (
	shiftPD   = bitPD0
	shiftVREF = bitVREF0
	shiftC    = bitC0

	maskG    byte = 0x01
	maskPD   byte = 0x03
	maskVREF byte = 0x03
	maskC    byte = 0x07
)

// vrefBits maps VRef to its VREF1:VREF0 field.
var vrefBits = map[VRef]byte{
	VRefVddUnbuffered: 0x0, // 0,0
	VRefUnbuffered:    0x2, // 1,0
	VRefBuffered:      0x3, // 1,1
}

// powerBits maps PowerDown to its PD1:PD0 field.
var powerBits = map[PowerDown]byte{
	PowerNormal:   0x0, // 0,0
	PowerDown1k:   0x1, // 0,1
	PowerDown100k: 0x2, // 1,0
	PowerDown500k: 0x3, // 1,1
}

// memoryBits maps MemoryWrite to its C2:C1:C0 field.
var memoryBits = map[MemoryWrite]byte{
	WriteVolatileDAC:     0x0, // 0,0,0
	WriteVolatileCommand: 0x2, // 0,1,0
	WriteAllMemory:       0x3, // 0,1,1
	WriteVolatileConfig:  0x4, // 1,0,0
}

// Command holds the four enumerated settings that make up the command byte.
type Command struct {
	VRef   VRef
	Gain   Gain
	Power  PowerDown
	Memory MemoryWrite
}

// EncodeCommand packs c into the device command byte. The result depends only
// on the four field values. Values outside the enumerated constants
// contribute all-zero bits to their field.
func EncodeCommand(c Command) byte {
	var b byte
	if GainX2 == c.Gain {
		b |= 1 << bitG
	}
	b |= powerBits[c.Power] << shiftPD
	b |= vrefBits[c.VRef] << shiftVREF
	b |= memoryBits[c.Memory] << shiftC
	return b
}

// DecodeCommand unpacks a command byte into its enumerated settings.
//
// Returns an error if the VREF or C field holds a bit pattern that no
// enumerated value encodes to.
func DecodeCommand(b byte) (Command, error) {

	c := Command{
		Gain:  Gain(b >> bitG & maskG),
		Power: PowerDown(b >> shiftPD & maskPD),
	}

	ok := false
	v := (b >> shiftVREF) & maskVREF
	for ref, bits := range vrefBits {
		if bits == v {
			c.VRef, ok = ref, true
			break
		}
	}
	if !ok {
		return c, fmt.Errorf("invalid VREF bits: 0b%02b", v)
	}

	ok = false
	m := (b >> shiftC) & maskC
	for mem, bits := range memoryBits {
		if bits == m {
			c.Memory, ok = mem, true
			break
		}
	}
	if !ok {
		return c, fmt.Errorf("invalid memory-write bits: 0b%03b", m)
	}

	return c, nil
}

// -----------------------------------------------------------------------------
// -- NAMES --------------------------------------------------------- [start] --

var (
	vrefNames   = []string{"vdd", "vref", "vref-buffered"}
	gainNames   = []string{"x1", "x2"}
	powerNames  = []string{"normal", "1k", "100k", "500k"}
	memoryNames = []string{"volatile-dac", "volatile-command", "all", "volatile-config"}
)

func name(names []string, v byte, kind string) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func parse(names []string, s string, kind string) (byte, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("invalid %s: %q (must be one of: %s)", kind, s, strings.Join(names, ", "))
}

func (v VRef) String() string        { return name(vrefNames, byte(v), "VRef") }
func (g Gain) String() string        { return name(gainNames, byte(g), "Gain") }
func (p PowerDown) String() string   { return name(powerNames, byte(p), "PowerDown") }
func (m MemoryWrite) String() string { return name(memoryNames, byte(m), "MemoryWrite") }

// ParseVRef returns the VRef named by s (vdd, vref, vref-buffered).
func ParseVRef(s string) (VRef, error) {
	v, err := parse(vrefNames, s, "reference")
	return VRef(v), err
}

// ParseGain returns the Gain named by s (x1, x2).
func ParseGain(s string) (Gain, error) {
	v, err := parse(gainNames, s, "gain")
	return Gain(v), err
}

// ParsePowerDown returns the PowerDown named by s (normal, 1k, 100k, 500k).
func ParsePowerDown(s string) (PowerDown, error) {
	v, err := parse(powerNames, s, "power mode")
	return PowerDown(v), err
}

// ParseMemoryWrite returns the MemoryWrite named by s (volatile-dac,
// volatile-command, all, volatile-config).
func ParseMemoryWrite(s string) (MemoryWrite, error) {
	v, err := parse(memoryNames, s, "memory target")
	return MemoryWrite(v), err
}

// -- NAMES ----------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------
