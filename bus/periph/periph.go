// Package periph provides an I²C transport for MCP47X6 devices on top of
// periph.io, covering Linux i2c-dev buses and any other host driver periph
// registers.
package periph

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/ardnew/mcp47x6/bus"
)

// Transport writes frames to devices on a periph I²C bus.
type Transport struct {
	b      i2c.Bus
	closer func() error
}

// New returns a Transport using an already-opened bus. Close will not close
// b.
func New(b i2c.Bus) *Transport {
	return &Transport{b: b}
}

// Open initializes the periph host drivers and opens the named I²C bus. An
// empty name selects the first bus available.
func Open(name string) (*Transport, error) {

	if _, err := host.Init(); nil != err {
		return nil, fmt.Errorf("host.Init(): %w", err)
	}

	bc, err := i2creg.Open(name)
	if nil != err {
		return nil, fmt.Errorf("i2creg.Open(%q): %w", name, err)
	}

	return &Transport{b: bc, closer: bc.Close}, nil
}

// Close closes the bus if it was opened by Open.
func (t *Transport) Close() error {
	if nil == t.closer {
		return nil
	}
	err := t.closer()
	t.closer = nil
	return err
}

func (t *Transport) String() string {
	if nil == t.b {
		return "periph(nil)"
	}
	return fmt.Sprintf("periph(%s)", t.b)
}

// Tx writes one complete frame to the device at 7-bit address addr. It
// satisfies bus.TxFunc.
func (t *Transport) Tx(addr uint8, w []byte) error {
	if nil == t.b {
		return fmt.Errorf("nil I²C bus")
	}
	d := i2c.Dev{Bus: t.b, Addr: uint16(addr)}
	if err := d.Tx(w, nil); nil != err {
		return fmt.Errorf("Tx(): %w", err)
	}
	return nil
}

// Bus returns a transaction-oriented transport for the mcp47x6 driver.
func (t *Transport) Bus() *bus.Buffered {
	return bus.New(t.Tx)
}

// Scan implements bus.Scanner by attempting a single-byte read from each
// address in [start, stop].
func (t *Transport) Scan(start uint8, stop uint8) ([]uint8, error) {

	if nil == t.b {
		return nil, fmt.Errorf("nil I²C bus")
	}

	if start > stop {
		return nil, fmt.Errorf("invalid address range [%d, %d]", start, stop)
	}

	found := []uint8{}
	var r [1]byte
	for addr := int(start); addr <= int(stop); addr++ {
		if err := t.b.Tx(uint16(addr), nil, r[:]); nil == err {
			found = append(found, uint8(addr))
		}
	}

	return found, nil
}
