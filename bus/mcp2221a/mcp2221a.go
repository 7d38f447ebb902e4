// Package mcp2221a provides an I²C master for MCP47X6 devices through the
// Microchip MCP2221A USB to GPIO/I²C/UART protocol converter. The I²C module
// of the converter is implemented as a USB HID-class device; only the command
// set needed to run the I²C bus (status, set-parameters, reset, and the I²C
// transfer commands) is supported here.
//
// Datasheet: http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
//
// USB HID support provided by: https://github.com/karalabe/hid
package mcp2221a

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	usb "github.com/karalabe/hid"

	"github.com/ardnew/mcp47x6/bus"
)

// VID and PID are the official vendor and product identifiers assigned by the
// USB-IF.
const (
	VID = 0x04D8 // 16-bit vendor ID for Microchip Technology Inc.
	PID = 0x00DD // 16-bit product ID for the Microchip MCP2221A.
)

// MsgSz is the size (in bytes) of all command and response messages.
const MsgSz = 64

// ClkHz is the internal clock frequency of the MCP2221A.
const ClkHz = 12000000

// WordSet and WordClr are the logical true and false values for a single word
// (byte) in a message.
const (
	WordSet byte = 0xFF // All bits set
	WordClr byte = 0x00 // All bits clear
)

// Errors that callers may want to test for with errors.Is.
var (
	ErrNilDevice = errors.New("nil MCP2221A")
	ErrNACK      = errors.New("I²C NACK")
	ErrTimeout   = errors.New("I²C timed out")
	ErrRetries   = errors.New("too many retries")
)

// Constants for the recognized commands (and responses). These are sent as the
// first word in all command messages, and are echoed back as the first word in
// all response messages.
const (
	cmdStatus    byte = 0x10
	cmdSetParams byte = 0x10

	cmdI2CWrite        byte = 0x90
	cmdI2CWriteNoStop  byte = 0x94
	cmdI2CRead         byte = 0x91
	cmdI2CReadRepStart byte = 0x93
	cmdI2CReadGetData  byte = 0x40

	cmdReset byte = 0x70
)

// makeMsg creates a new zero'd slice with required length of command and
// response messages, both of which are always 64 bytes.
func makeMsg() []byte { return make([]byte, MsgSz) }

// -----------------------------------------------------------------------------
// -- DEVICE -------------------------------------------------------- [start] --

// HID is the part of a USB HID device handle used to exchange messages with
// the bridge. *hid.Device satisfies it.
type HID interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// MCP2221A is a handle to an opened USB HID bridge.
// If multiple MCP2221A devices are connected to the host PC, the index of the
// desired target can be determined with AttachedDevices() and passed to New().
// Call Close() on the device when finished to also close the USB connection.
type MCP2221A struct {
	Device HID
	Index  byte
	VID    uint16
	PID    uint16

	// Log, if non-nil, receives every HID message sent and received.
	Log *log.Logger
}

// AttachedDevices returns a slice of all connected USB HID device descriptors
// matching the given VID and PID.
func AttachedDevices(vid uint16, pid uint16) []usb.DeviceInfo {
	return usb.Enumerate(vid, pid)
}

// New opens the bridge with the given VID and PID, enumerated at the given
// index (an index of 0 will use the first device found).
//
// Returns an error if index is out of range (according to AttachedDevices()) or
// if the USB HID device could not be claimed or opened.
func New(idx byte, vid uint16, pid uint16) (*MCP2221A, error) {

	info := AttachedDevices(vid, pid)
	if int(idx) >= len(info) {
		return nil, fmt.Errorf("device index %d out of range (%d attached)", idx, len(info))
	}

	dev, err := info[idx].Open()
	if nil != err {
		return nil, fmt.Errorf("Open(): %w", err)
	}

	return &MCP2221A{Device: dev, Index: idx, VID: vid, PID: pid}, nil
}

// valid verifies the receiver and USB HID device are both not nil.
func (mcp *MCP2221A) valid() error {
	if nil == mcp || nil == mcp.Device {
		return ErrNilDevice
	}
	return nil
}

// Close releases the USB HID connection.
func (mcp *MCP2221A) Close() error {
	if err := mcp.valid(); nil != err {
		return err
	}
	err := mcp.Device.Close()
	mcp.Device = nil
	return err
}

// logMsg pretty-prints a message with the receiver's logger, skipping the
// trailing run of zero bytes:
//
//	IDX: DEC {0xHEX} [0bBIN]
func (mcp *MCP2221A) logMsg(dir string, buf []byte) {
	if nil == mcp.Log || 0 == len(buf) {
		return
	}
	end := len(buf)
	for end > 1 && WordClr == buf[end-1] {
		end--
	}
	n := int(math.Floor(math.Log10(float64(len(buf)-1)))) + 1
	mcp.Log.Printf("%s [cmd=0x%02X]", dir, buf[0])
	for i, b := range buf[:end] {
		mcp.Log.Printf("%*d: %3d {0x%02X} [0b%08b]", n, i, b, b, b)
	}
}

// send transmits a command message and returns the response message. The
// data argument is a byte slice created by makeMsg(); cmd is inserted at
// index 0 automatically.
//
// A nil slice is returned with an error if the USB HID device could not be
// written to or read from. If a response was read, it is returned along with
// an error if it was short or if its status byte does not indicate success.
// The reset command has no response, so a nil slice and nil error are
// returned once it is written.
func (mcp *MCP2221A) send(cmd byte, data []byte) ([]byte, error) {

	if err := mcp.valid(); nil != err {
		return nil, err
	}

	data[0] = cmd
	mcp.logMsg("send", data)
	if _, err := mcp.Device.Write(data); nil != err {
		return nil, fmt.Errorf("Write([cmd=0x%02X]): %w", cmd, err)
	}

	if cmdReset == cmd {
		return nil, nil
	}

	rsp := makeMsg()
	recv, err := mcp.Device.Read(rsp)
	if nil != err {
		return nil, fmt.Errorf("Read([cmd=0x%02X]): %w", cmd, err)
	}
	mcp.logMsg("recv", rsp)
	if recv < MsgSz {
		return rsp, fmt.Errorf("Read([cmd=0x%02X]): short read (%d of %d bytes)", cmd, recv, MsgSz)
	}
	if rsp[0] != cmd || rsp[1] != WordClr {
		return rsp, fmt.Errorf("Read([cmd=0x%02X]): command failed", cmd)
	}

	return rsp, nil
}

// Reset sends a reset command and then attempts to reopen a connection to the
// same USB HID device within a given timeout duration.
func (mcp *MCP2221A) Reset(timeout time.Duration) error {

	if err := mcp.valid(); nil != err {
		return err
	}

	cmd := makeMsg()
	cmd[1] = 0xAB
	cmd[2] = 0xCD
	cmd[3] = 0xEF

	if _, err := mcp.send(cmdReset, cmd); nil != err {
		return fmt.Errorf("send(): %w", err)
	}

	// the bridge re-enumerates after a reset, so the old handle is dead.
	mcp.Device.Close()
	mcp.Device = nil

	ch := make(chan HID)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			if m, err := New(mcp.Index, mcp.VID, mcp.PID); nil == err {
				select {
				case ch <- m.Device:
				case <-done:
					m.Device.Close()
				}
				return
			}
			select {
			case <-done:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()

	select {
	case <-time.After(timeout):
		return fmt.Errorf("New([%d]): %w opening USB HID device", mcp.Index, ErrTimeout)
	case dev := <-ch:
		mcp.Device = dev
	}

	return nil
}

// status contains conveniently-typed fields parsed from the response message
// of a status command.
type status struct {
	cmd        byte
	ok         bool
	i2cCancel  byte
	i2cSpdChg  byte
	i2cClkChg  byte
	i2cState   byte
	i2cReqSz   uint16
	i2cSentSz  uint16
	i2cCounter byte
	i2cClkDiv  byte
	i2cTimeVal byte
	i2cAddr    uint16
	i2cSCL     byte
	i2cSDA     byte
	i2cReadPnd byte
	hwRev      string
	fwRev      string
}

// newStatus parses the response message of a status command.
//
// Returns nil if the given response message is nil or has inadequate length.
func newStatus(msg []byte) *status {
	if len(msg) < MsgSz {
		return nil
	}
	word := func(lo int) uint16 { return (uint16(msg[lo+1]) << 8) | uint16(msg[lo]) }
	return &status{
		cmd:       msg[0],
		ok:        WordClr == msg[1],
		i2cCancel: msg[2],
		i2cSpdChg: msg[3],
		i2cClkChg: msg[4],
		// bytes 5-7 reserved
		i2cState:   msg[8],
		i2cReqSz:   word(9),
		i2cSentSz:  word(11),
		i2cCounter: msg[13],
		i2cClkDiv:  msg[14],
		i2cTimeVal: msg[15],
		i2cAddr:    word(16),
		// bytes 18-21 reserved
		i2cSCL:     msg[22],
		i2cSDA:     msg[23],
		i2cReadPnd: msg[25],
		hwRev:      string([]byte{msg[46], '.', msg[47]}),
		fwRev:      string([]byte{msg[48], '.', msg[49]}),
	}
}

// status sends a status command request, parsing the response.
func (mcp *MCP2221A) status() (*status, error) {
	rsp, err := mcp.send(cmdStatus, makeMsg())
	if nil != err {
		return nil, fmt.Errorf("send(): %w", err)
	}
	return newStatus(rsp), nil
}

// Revision returns the hardware and firmware revisions reported by the bridge.
func (mcp *MCP2221A) Revision() (hw string, fw string, err error) {
	stat, err := mcp.status()
	if nil != err {
		return "", "", fmt.Errorf("status(): %w", err)
	}
	return stat.hwRev, stat.fwRev, nil
}

// -- DEVICE ---------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------

// -----------------------------------------------------------------------------
// -- I²C ----------------------------------------------------------- [start] --

// Constants associated with the I²C module.
const (
	I2CBaudRate = 100000 // default baud rate
	I2CMinAddr  = 0x08   // minimum possible 7-bit address
	I2CMaxAddr  = 0x77   // maximum possible (unreserved) 7-bit address
)

// Private constants associated with the I²C module.
const (
	i2cReadMax  = 60 // maximum number of bytes we can read at a time
	i2cWriteMax = 60 // maximum number of bytes we can write at a time

	// internal I²C state machine codes, as used by Adafruit_Blinka mcp2221.py.
	// several of these are not documented in the datasheet.
	i2cStateStartTimeout    byte = 0x12
	i2cStateRepStartTimeout byte = 0x17
	i2cStateStopTimeout     byte = 0x62

	i2cStateAddrTimeout byte = 0x23
	i2cStateAddrNACK    byte = 0x25

	i2cStatePartialData   byte = 0x41
	i2cStateWriteTimeout  byte = 0x44
	i2cStateWritingNoStop byte = 0x45
	i2cStateReadTimeout   byte = 0x52

	i2cStateReadError byte = 0x7F

	i2cRetry      = 50 // maximum number of retries permitted for one transfer
	i2cRetryDelay = 300 * time.Microsecond
)

// i2cStateNACK tests if the given I²C state machine status indicates a NACK
// from the requested slave address.
func i2cStateNACK(state byte) bool {
	return i2cStateAddrNACK == state
}

// i2cStateTimeout tests if the given I²C state machine status indicates any
// type of communication timeout.
func i2cStateTimeout(state byte) bool {
	switch state {
	case i2cStateStartTimeout, i2cStateRepStartTimeout, i2cStateStopTimeout,
		i2cStateReadTimeout, i2cStateWriteTimeout, i2cStateAddrTimeout:
		return true
	}
	return false
}

// i2cStateErr converts a fatal I²C state machine status into an error, or
// returns nil if the state is not fatal.
func i2cStateErr(state byte, addr uint8) error {
	if i2cStateNACK(state) {
		return fmt.Errorf("%w from address (0x%02X)", ErrNACK, addr)
	}
	if i2cStateTimeout(state) {
		return fmt.Errorf("%w (state=0x%02X)", ErrTimeout, state)
	}
	return nil
}

// I2CSetConfig configures the I²C bus clock divider calculated from a given
// baud rate (BPS). If in doubt, use I2CBaudRate.
func (mcp *MCP2221A) I2CSetConfig(baud uint32) error {

	if baud > ClkHz/3 || baud < ClkHz/258 {
		return fmt.Errorf("invalid baud rate: %d", baud)
	}

	cmd := makeMsg()
	cmd[3] = 0x20 // alter I²C speed
	cmd[4] = byte(ClkHz/baud - 3)

	rsp, err := mcp.send(cmdSetParams, cmd)
	if nil != err {
		return fmt.Errorf("send(): %w", err)
	}
	if 0x21 == newStatus(rsp).i2cSpdChg {
		return fmt.Errorf("transfer in progress")
	}

	return nil
}

// I2CCancel cancels any I²C transfer currently in progress.
func (mcp *MCP2221A) I2CCancel() error {

	cmd := makeMsg()
	cmd[2] = 0x10 // cancel current transfer

	rsp, err := mcp.send(cmdSetParams, cmd)
	if nil != err {
		return fmt.Errorf("send(): %w", err)
	}
	if 0x10 == newStatus(rsp).i2cCancel {
		time.Sleep(i2cRetryDelay)
	}

	return nil
}

// i2cIdle prepares the I²C engine for a new transfer, cancelling a stale one
// if needed. A pending write-without-STOP is left in place when keepNoStop is
// true.
func (mcp *MCP2221A) i2cIdle(keepNoStop bool) error {
	stat, err := mcp.status()
	if nil != err {
		return fmt.Errorf("status(): %w", err)
	}
	if WordClr == stat.i2cState || (keepNoStop && i2cStateWritingNoStop == stat.i2cState) {
		return nil
	}
	// a NACK left over from a previous transfer (e.g. while scanning) is
	// cleared the same way as any other stale state.
	if err := mcp.I2CCancel(); nil != err {
		return fmt.Errorf("I2CCancel(): %w", err)
	}
	return nil
}

// I2CWrite writes out to the device at 7-bit address addr. If stop is true an
// I²C STOP condition is generated once all bytes are transmitted; otherwise
// the bus remains active for a subsequent repeated-start read.
//
// Returns an error wrapping ErrNACK if the address was not acknowledged,
// ErrTimeout if the I²C engine timed out, or ErrRetries if the bridge stayed
// busy for too long.
func (mcp *MCP2221A) I2CWrite(stop bool, addr uint8, out []byte) error {

	if err := mcp.valid(); nil != err {
		return err
	}

	cnt := len(out)
	if 0 == cnt {
		return nil
	}

	if err := mcp.i2cIdle(false); nil != err {
		return err
	}

	cmdID := cmdI2CWrite
	if !stop {
		cmdID = cmdI2CWriteNoStop
	}

	for pos := 0; pos < cnt; {

		sz := cnt - pos
		if sz > i2cWriteMax {
			sz = i2cWriteMax
		}

		cmd := makeMsg()
		cmd[1] = byte(cnt & 0xFF)
		cmd[2] = byte((cnt >> 8) & 0xFF)
		cmd[3] = byte(addr << 1)
		copy(cmd[4:], out[pos:pos+sz])

		sent := false
		for retry := 0; !sent && retry < i2cRetry; retry++ {
			rsp, err := mcp.send(cmdID, cmd)
			if nil != err {
				if nil == rsp {
					return fmt.Errorf("send(): %w", err)
				}
				if err := i2cStateErr(rsp[2], addr); nil != err {
					return fmt.Errorf("send(): %w", err)
				}
				time.Sleep(i2cRetryDelay)
				continue
			}
			sent = true
		}
		if !sent {
			return ErrRetries
		}

		// wait for the bridge to drain this chunk onto the bus
		for partial := true; partial; {
			stat, err := mcp.status()
			if nil != err {
				return fmt.Errorf("status(): %w", err)
			}
			partial = i2cStatePartialData == stat.i2cState
		}

		pos += sz
	}

	for retry := 0; retry < i2cRetry; retry++ {
		stat, err := mcp.status()
		if nil != err {
			return fmt.Errorf("status(): %w", err)
		}
		if WordClr == stat.i2cState {
			return nil
		}
		if !stop && i2cStateWritingNoStop == stat.i2cState {
			return nil
		}
		if err := i2cStateErr(stat.i2cState, addr); nil != err {
			return fmt.Errorf("status(): %w", err)
		}
		time.Sleep(i2cRetryDelay)
	}

	return ErrRetries
}

// I2CRead reads cnt bytes from the device at 7-bit address addr. If rep is
// true, a REP-START condition is generated (instead of START) to read from a
// subaddress selected by a preceding I2CWrite without STOP.
func (mcp *MCP2221A) I2CRead(rep bool, addr uint8, cnt int) ([]byte, error) {

	if err := mcp.valid(); nil != err {
		return nil, err
	}

	if cnt <= 0 {
		return []byte{}, nil
	}

	if err := mcp.i2cIdle(true); nil != err {
		return nil, err
	}

	cmd := makeMsg()
	cmd[1] = byte(cnt & 0xFF)
	cmd[2] = byte((cnt >> 8) & 0xFF)
	cmd[3] = byte((addr << 1) | 0x01)

	cmdID := cmdI2CRead
	if rep {
		cmdID = cmdI2CReadRepStart
	}

	if _, err := mcp.send(cmdID, cmd); nil != err {
		return nil, fmt.Errorf("send(): %w", err)
	}

	in := make([]byte, cnt)

	for pos := 0; pos < cnt; {

		var rsp []byte
		got := false
		for retry := 0; !got && retry < i2cRetry; retry++ {
			r, err := mcp.send(cmdI2CReadGetData, makeMsg())
			if nil != err {
				if nil != r && (i2cStatePartialData == r[1] || i2cStateReadError == r[3]) {
					time.Sleep(i2cRetryDelay)
					continue
				}
				return nil, fmt.Errorf("send(): %w", err)
			}
			if i2cStateNACK(r[2]) {
				return nil, fmt.Errorf("send(): %w from address (0x%02X)", ErrNACK, addr)
			}
			if i2cStateReadError == r[3] {
				time.Sleep(i2cRetryDelay)
				continue
			}
			rsp, got = r, true
		}
		if !got {
			return nil, ErrRetries
		}

		sz := cnt - pos
		if sz > i2cReadMax {
			sz = i2cReadMax
		}
		copy(in[pos:], rsp[4:4+sz])
		pos += sz
	}

	return in, nil
}

// I2CScan probes each 7-bit address in [start, stop] with a single-byte read,
// ignoring any failures caused by non-existent targets.
//
// Returns the addresses that responded.
func (mcp *MCP2221A) I2CScan(start uint8, stop uint8) ([]uint8, error) {

	if err := mcp.valid(); nil != err {
		return nil, err
	}

	if start > stop {
		return nil, fmt.Errorf("invalid address range [%d, %d]", start, stop)
	}

	found := []uint8{}
	for addr := int(start); addr <= int(stop); addr++ {
		if _, err := mcp.I2CRead(false, uint8(addr), 1); nil == err {
			found = append(found, uint8(addr))
		}
	}

	return found, nil
}

// -- I²C ------------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------

// -----------------------------------------------------------------------------
// -- BUS ----------------------------------------------------------- [start] --

// Tx writes one complete frame followed by a STOP condition. It satisfies
// bus.TxFunc.
func (mcp *MCP2221A) Tx(addr uint8, w []byte) error {
	return mcp.I2CWrite(true, addr, w)
}

// Bus returns a transaction-oriented transport for the mcp47x6 driver backed
// by this bridge.
func (mcp *MCP2221A) Bus() *bus.Buffered {
	return bus.New(mcp.Tx)
}

// Scan implements bus.Scanner.
func (mcp *MCP2221A) Scan(start uint8, stop uint8) ([]uint8, error) {
	return mcp.I2CScan(start, stop)
}

// -- BUS ------------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------
