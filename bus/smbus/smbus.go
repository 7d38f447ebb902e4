// Package smbus provides an I²C transport for MCP47X6 devices through the
// Linux i2c-dev SMBus interface.
//
// Every MCP47X6 write begins with a command byte, so a frame maps directly
// onto an SMBus I²C-block write: the command byte travels as the register
// and the level bytes as the block.
package smbus

import (
	"fmt"

	"github.com/go-daq/smbus"

	"github.com/ardnew/mcp47x6/bus"
)

// minFrame is the shortest frame an I²C-block write can carry: a register
// (command) byte and at least one data byte.
const minFrame = 2

// Transport writes frames through an SMBus connection.
type Transport struct {
	conn *smbus.Conn
}

// Open opens /dev/i2c-<busNumber> with addr selected as the initial slave.
func Open(busNumber int, addr uint8) (*Transport, error) {
	conn, err := smbus.Open(busNumber, addr)
	if nil != err {
		return nil, fmt.Errorf("smbus.Open(%d, 0x%02X): %w", busNumber, addr, err)
	}
	return &Transport{conn: conn}, nil
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	if nil == t.conn {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Tx writes frame w to addr as an I²C-block write. It satisfies bus.TxFunc.
func (t *Transport) Tx(addr uint8, w []byte) error {
	if err := checkFrame(w); nil != err {
		return err
	}
	if nil == t.conn {
		return fmt.Errorf("smbus: connection closed")
	}
	if err := t.conn.WriteBlockData(addr, w[0], w[1:]); nil != err {
		return fmt.Errorf("WriteBlockData(0x%02X, 0x%02X): %w", addr, w[0], err)
	}
	return nil
}

// checkFrame verifies w can be expressed as an I²C-block write.
func checkFrame(w []byte) error {
	if len(w) < minFrame {
		return fmt.Errorf("smbus: frame too short (%d of %d bytes)", len(w), minFrame)
	}
	return nil
}

// Bus returns a transaction-oriented transport for the mcp47x6 driver.
func (t *Transport) Bus() *bus.Buffered {
	return bus.New(t.Tx)
}
