// Package bustest provides a recording bus for testing code that drives
// devices through the begin/write/end transaction interface.
package bustest

import (
	"errors"
	"fmt"
)

// ErrInjected is the default error returned by a Recorder configured to fail.
var ErrInjected = errors.New("bustest: injected failure")

// Tx is one recorded transaction.
type Tx struct {
	Addr  uint8
	Bytes []byte
	Err   error // error returned by EndTransaction
}

// Recorder records every transaction it is asked to perform. It never talks
// to hardware.
type Recorder struct {
	// FailEnd, if non-nil, is returned by every EndTransaction.
	FailEnd error
	// FailWriteAt, if positive, makes the WriteByte call with this 1-based
	// index within a transaction fail with ErrInjected.
	FailWriteAt int

	Ops []Tx

	cur  *Tx
	nw   int
	errs []error
}

// BeginTransaction starts recording a transaction addressed to addr.
func (r *Recorder) BeginTransaction(addr uint8) {
	if nil != r.cur {
		r.errs = append(r.errs, fmt.Errorf("BeginTransaction(0x%02X): transaction already open", addr))
	}
	r.cur = &Tx{Addr: addr, Bytes: []byte{}}
	r.nw = 0
}

// WriteByte records c in the open transaction.
func (r *Recorder) WriteByte(c byte) error {
	if nil == r.cur {
		r.errs = append(r.errs, fmt.Errorf("WriteByte(0x%02X): no transaction open", c))
		return fmt.Errorf("no transaction open")
	}
	r.nw++
	if r.FailWriteAt > 0 && r.nw == r.FailWriteAt {
		return ErrInjected
	}
	r.cur.Bytes = append(r.cur.Bytes, c)
	return nil
}

// EndTransaction closes the open transaction and returns FailEnd.
func (r *Recorder) EndTransaction() error {
	if nil == r.cur {
		r.errs = append(r.errs, fmt.Errorf("EndTransaction(): no transaction open"))
		return fmt.Errorf("no transaction open")
	}
	r.cur.Err = r.FailEnd
	r.Ops = append(r.Ops, *r.cur)
	r.cur = nil
	return r.FailEnd
}

// Last returns the most recently completed transaction, or nil if there is
// none.
func (r *Recorder) Last() *Tx {
	if 0 == len(r.Ops) {
		return nil
	}
	return &r.Ops[len(r.Ops)-1]
}

// Open reports whether a transaction has been begun but not ended.
func (r *Recorder) Open() bool { return nil != r.cur }

// Misuse returns every out-of-sequence call observed so far.
func (r *Recorder) Misuse() []error { return r.errs }

// Reset discards all recorded state.
func (r *Recorder) Reset() {
	r.Ops = nil
	r.cur = nil
	r.nw = 0
	r.errs = nil
}
