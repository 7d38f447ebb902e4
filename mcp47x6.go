// Package mcp47x6 provides a driver for the Microchip MCP47X6 family of
// single-channel I²C digital-to-analog converters: MCP4706 (8-bit), MCP4716
// (10-bit), and MCP4726 (12-bit). All three parts share a common programming
// interface consisting of a packed command byte followed by the DAC level.
//
// Datasheet: http://ww1.microchip.com/downloads/en/DeviceDoc/22272C.pdf
//
// The driver does not talk to hardware directly. It drives any two-wire
// transport satisfying Bus; see the bus/ subpackages for the MCP2221A USB
// bridge, periph.io, and Linux SMBus implementations.
package mcp47x6

import (
	"errors"
	"fmt"
	"log"
	"math"
)

// DefaultAddress is the factory-programmed 7-bit address most commonly found
// on MCP47X6 parts. Parts are available programmed for any of 0x60 thru 0x67.
const DefaultAddress uint8 = 0x60

// Address range that MCP47X6 parts can be ordered with.
const (
	MinAddress uint8 = 0x60
	MaxAddress uint8 = 0x67
)

// MaxLevel is the largest output level on the universal 12-bit scale. Every
// variant accepts levels in [0, MaxLevel]; lower-resolution parts ignore the
// least-significant bits.
const MaxLevel uint16 = 0x0FFF

// ErrTransaction is wrapped by every error returned from an operation that
// performs a bus transaction which did not complete cleanly.
var ErrTransaction = errors.New("mcp47x6: bus transaction failed")

// Bus is the two-wire transport used to reach the device. A transaction is
// opened with BeginTransaction, filled with WriteByte, and committed with
// EndTransaction, which reports whether the device acknowledged the transfer.
type Bus interface {
	BeginTransaction(addr uint8)
	WriteByte(c byte) error
	EndTransaction() error
}

// logMsg pretty-prints a transmitted frame with the given logger, one byte per
// line:
//
//	IDX: DEC {0xHEX} [0bBIN]
func logMsg(l *log.Logger, addr uint8, buf []byte) {
	if nil == l || 0 == len(buf) {
		return
	}
	l.Printf("frame -> 0x%02X (%d bytes)", addr, len(buf))
	n := 1
	if len(buf) > 1 {
		n = int(math.Floor(math.Log10(float64(len(buf)-1)))) + 1
	}
	for i, b := range buf {
		l.Printf("%*d: %3d {0x%02X} [0b%08b]", n, i, b, b, b)
	}
}

// Settings holds the logical configuration of a device.
type Settings struct {
	VRef   VRef
	Gain   Gain
	Power  PowerDown
	Memory MemoryWrite
	Level  uint16
}

// MCP47X6 is the primary object used for interacting with a device. It owns
// the device configuration and keeps the packed command byte consistent with
// it after every setter call.
//
// An MCP47X6 is not safe for concurrent use. The bus is usually shared by
// other devices as well, so callers must serialize access externally.
type MCP47X6 struct {
	// Log, if non-nil, receives a trace of every frame written to the bus.
	Log *log.Logger

	bus     Bus
	variant Variant
	addr    uint8

	vref   VRef
	gain   Gain
	power  PowerDown
	memory MemoryWrite
	level  uint16

	cmd byte
}

// New returns a new MCP47X6 of the given variant at 7-bit address addr on bus,
// configured with s. No bus traffic occurs; call Init to write the settings
// to the device.
func New(bus Bus, variant Variant, addr uint8, s Settings) *MCP47X6 {
	dac := &MCP47X6{
		bus:     bus,
		variant: variant,
		addr:    addr & 0x7F,
		vref:    s.VRef,
		gain:    s.Gain,
		power:   s.Power,
		memory:  s.Memory,
		level:   s.Level,
	}
	dac.encode()
	return dac
}

// encode recomputes the command byte from the current settings.
func (dac *MCP47X6) encode() {
	dac.cmd = EncodeCommand(Command{
		VRef:   dac.vref,
		Gain:   dac.gain,
		Power:  dac.power,
		Memory: dac.memory,
	})
}

// Address returns the 7-bit bus address of the device.
func (dac *MCP47X6) Address() uint8 { return dac.addr }

// Variant returns the device model.
func (dac *MCP47X6) Variant() Variant { return dac.variant }

// Command returns the packed command byte for the current settings.
func (dac *MCP47X6) Command() byte { return dac.cmd }

// Settings returns a copy of the current logical configuration.
func (dac *MCP47X6) Settings() Settings {
	return Settings{
		VRef:   dac.vref,
		Gain:   dac.gain,
		Power:  dac.power,
		Memory: dac.memory,
		Level:  dac.level,
	}
}

func (dac *MCP47X6) String() string {
	return fmt.Sprintf("%s@0x%02X{cmd=0x%02X vref=%s gain=%s power=%s memory=%s level=%d}",
		dac.variant, dac.addr, dac.cmd, dac.vref, dac.gain, dac.power, dac.memory, dac.level)
}

// Init performs the first write to the device using the configured memory
// target. With WriteAllMemory the settings are also persisted to EEPROM.
func (dac *MCP47X6) Init() error {
	return dac.writeCommand(dac.memory)
}

// SetGain changes the output amplifier gain. No bus traffic occurs.
func (dac *MCP47X6) SetGain(gain Gain) {
	dac.gain = gain
	dac.encode()
}

// SetVReference changes the voltage reference source. No bus traffic occurs.
func (dac *MCP47X6) SetVReference(vref VRef) {
	dac.vref = vref
	dac.encode()
}

// SetPower changes the power-down mode. No bus traffic occurs.
func (dac *MCP47X6) SetPower(power PowerDown) {
	dac.power = power
	dac.encode()
}

// SetOutputLevel changes the output level on the universal 12-bit scale. No
// bus traffic occurs.
func (dac *MCP47X6) SetOutputLevel(level uint16) {
	dac.level = level
}

// SetOutputLevelVolatileFast changes the output level and immediately writes
// it to the volatile DAC register, leaving the configured memory target
// untouched. The 8-bit variant transfers a single level byte.
//
// Returns the last level byte transmitted (the 8-bit code for MCP4706, the
// lower byte otherwise) and an error wrapping ErrTransaction if the write
// failed.
func (dac *MCP47X6) SetOutputLevelVolatileFast(level uint16) (byte, error) {
	dac.level = level
	cmd := EncodeCommand(Command{
		VRef:   dac.vref,
		Gain:   dac.gain,
		Power:  dac.power,
		Memory: WriteVolatileDAC,
	})
	frame := dac.frame(cmd)
	return frame[len(frame)-1], dac.transmit(frame)
}

// DownloadParameters sets the memory target and writes the command byte and
// output level to the device. The memory target is updated even if the write
// fails.
func (dac *MCP47X6) DownloadParameters(memory MemoryWrite) error {
	dac.memory = memory
	return dac.writeCommand(dac.memory)
}

// writeCommand encodes the command byte for the given memory target and sends
// it followed by the output level bytes in a single transaction.
func (dac *MCP47X6) writeCommand(memory MemoryWrite) error {
	dac.memory = memory
	dac.encode()
	return dac.transmit(dac.frame(dac.cmd))
}

// frame returns the command byte followed by the level bytes for the device
// variant.
func (dac *MCP47X6) frame(cmd byte) []byte {
	return append([]byte{cmd}, dac.variant.LevelBytes(dac.level)...)
}

// transmit writes frame to the device as one transaction. The transaction is
// always ended once begun, even if a byte could not be written.
func (dac *MCP47X6) transmit(frame []byte) error {

	if nil == dac.bus {
		return fmt.Errorf("%w: nil bus", ErrTransaction)
	}

	logMsg(dac.Log, dac.addr, frame)

	dac.bus.BeginTransaction(dac.addr)

	var werr error
	for _, b := range frame {
		if werr = dac.bus.WriteByte(b); nil != werr {
			break
		}
	}

	err := dac.bus.EndTransaction()
	if nil != werr {
		return fmt.Errorf("%w: WriteByte(): %w", ErrTransaction, werr)
	}
	if nil != err {
		return fmt.Errorf("%w: EndTransaction(): %w", ErrTransaction, err)
	}

	return nil
}
