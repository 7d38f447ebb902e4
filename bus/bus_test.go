package bus

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type sink struct {
	addr  uint8
	frame []byte
	calls int
	err   error
}

func (s *sink) tx(addr uint8, w []byte) error {
	s.calls++
	s.addr = addr
	s.frame = w
	return s.err
}

func TestBufferedFrame(t *testing.T) {

	type TC struct {
		addr  uint8
		bytes []byte
	}

	tc := []TC{
		{addr: 0x60, bytes: []byte{0x00, 0x08, 0x00}},
		{addr: 0x67, bytes: []byte{0x79, 0xFF}},
		{addr: 0x61, bytes: []byte{}},
	}

	for _, c := range tc {

		s := &sink{}
		b := New(s.tx)

		b.BeginTransaction(c.addr)
		for _, x := range c.bytes {
			if err := b.WriteByte(x); nil != err {
				t.Fatalf("[ ] FAIL: WriteByte(0x%02X) == %v", x, err)
			}
		}
		pend := b.Pending()
		e := b.EndTransaction()
		d := fmt.Sprintf("Begin(0x%02X) Write(% X) End() == %v", c.addr, c.bytes, e)

		if nil == e && 1 == s.calls && c.addr == s.addr &&
			bytes.Equal(c.bytes, s.frame) && bytes.Equal(c.bytes, pend) && nil == b.Pending() {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | sent (0x%02X, % X) x%d", d, s.addr, s.frame, s.calls)
		}
	}
}

func TestBufferedMisuse(t *testing.T) {

	type TC struct {
		name string
		fn   func(b *Buffered) error
		err  error
		sent int
	}

	tc := []TC{
		{
			name: "WriteByte without Begin",
			fn:   func(b *Buffered) error { return b.WriteByte(0x00) },
			err:  ErrNoTransaction,
		},
		{
			name: "End without Begin",
			fn:   func(b *Buffered) error { return b.EndTransaction() },
			err:  ErrNoTransaction,
		},
		{
			name: "End twice",
			fn: func(b *Buffered) error {
				b.BeginTransaction(0x60)
				b.EndTransaction()
				return b.EndTransaction()
			},
			err:  ErrNoTransaction,
			sent: 1,
		},
		{
			name: "Begin twice",
			fn: func(b *Buffered) error {
				b.BeginTransaction(0x60)
				b.WriteByte(0x01)
				b.BeginTransaction(0x61)
				return b.EndTransaction()
			},
			err: ErrTransactionOpen,
		},
	}

	for _, c := range tc {

		s := &sink{}
		e := c.fn(New(s.tx))
		d := fmt.Sprintf("%s == %v", c.name, e)

		if errors.Is(e, c.err) && c.sent == s.calls {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | != %v (sent %d)", d, c.err, s.calls)
		}
	}
}

func TestBufferedTxError(t *testing.T) {

	cause := errors.New("nack")
	s := &sink{err: cause}
	b := New(s.tx)

	b.BeginTransaction(0x60)
	b.WriteByte(0x00)
	e := b.EndTransaction()
	d := fmt.Sprintf("EndTransaction() with failing tx == %v", e)

	if errors.Is(e, cause) {
		t.Logf("[ ] PASS: %s", d)
	} else {
		t.Errorf("[ ] FAIL: %s", d)
	}

	// the transaction is closed even though the transfer failed
	if e := b.WriteByte(0x00); errors.Is(e, ErrNoTransaction) {
		t.Logf("[ ] PASS: WriteByte() after failed End == %v", e)
	} else {
		t.Errorf("[ ] FAIL: WriteByte() after failed End == %v", e)
	}
}

func TestBufferedNilTx(t *testing.T) {

	b := New(nil)
	b.BeginTransaction(0x60)
	if e := b.EndTransaction(); nil != e {
		t.Logf("[ ] PASS: EndTransaction() with nil tx == %v", e)
	} else {
		t.Errorf("[ ] FAIL: EndTransaction() with nil tx == nil")
	}
}
