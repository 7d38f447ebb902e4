// Package bus adapts frame-oriented I²C transports to the byte-at-a-time
// transaction interface used by the mcp47x6 driver.
//
// Every transport in the bus/ subpackages ultimately writes one complete
// frame (all bytes between START and STOP) to a 7-bit address. Buffered
// collects the bytes of a transaction and hands the frame to such a transmit
// function when the transaction ends.
package bus

import (
	"errors"
	"fmt"
)

// Errors reported for transactions used out of sequence.
var (
	ErrNoTransaction   = errors.New("bus: no transaction in progress")
	ErrTransactionOpen = errors.New("bus: transaction already in progress")
)

// TxFunc writes the frame w to the device at 7-bit address addr, generating
// START and STOP conditions around it.
type TxFunc func(addr uint8, w []byte) error

// Scanner is implemented by transports able to probe the bus for devices.
type Scanner interface {
	// Scan returns the 7-bit addresses in [start, stop] that acknowledged.
	Scan(start uint8, stop uint8) ([]uint8, error)
}

// Buffered implements the begin/write/end transaction interface on top of a
// TxFunc. The zero value is not usable; create one with New.
type Buffered struct {
	tx   TxFunc
	addr uint8
	buf  []byte
	open bool
	err  error
}

// New returns a Buffered transport that commits frames with tx.
func New(tx TxFunc) *Buffered {
	return &Buffered{tx: tx}
}

// BeginTransaction opens a new transaction addressed to addr. Opening a
// transaction while another is in progress discards the pending frame; the
// misuse is reported by the following EndTransaction.
func (b *Buffered) BeginTransaction(addr uint8) {
	b.err = nil
	if b.open {
		b.err = ErrTransactionOpen
	}
	b.addr = addr
	b.buf = b.buf[:0]
	b.open = true
}

// WriteByte appends c to the pending frame.
func (b *Buffered) WriteByte(c byte) error {
	if !b.open {
		return ErrNoTransaction
	}
	b.buf = append(b.buf, c)
	return nil
}

// EndTransaction transmits the pending frame and closes the transaction.
//
// Returns an error if no transaction was open, if the transaction was begun
// out of sequence, or if the transport failed to deliver the frame.
func (b *Buffered) EndTransaction() error {

	if !b.open {
		return ErrNoTransaction
	}
	b.open = false

	if nil != b.err {
		return b.err
	}

	if nil == b.tx {
		return fmt.Errorf("nil transmit function")
	}

	frame := make([]byte, len(b.buf))
	copy(frame, b.buf)

	if err := b.tx(b.addr, frame); nil != err {
		return fmt.Errorf("tx([addr=0x%02X]): %w", b.addr, err)
	}

	return nil
}

// Pending returns a copy of the bytes written in the current transaction, or
// nil if no transaction is open.
func (b *Buffered) Pending() []byte {
	if !b.open {
		return nil
	}
	p := make([]byte, len(b.buf))
	copy(p, b.buf)
	return p
}
