package mcp2221a

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewStatus(t *testing.T) {

	msg := makeMsg()
	msg[0] = cmdStatus
	msg[8] = i2cStateWritingNoStop
	msg[9], msg[10] = 0x34, 0x12 // requested 0x1234
	msg[11], msg[12] = 0x03, 0x00
	msg[16], msg[17] = 0xC0, 0x00
	msg[46], msg[47] = 'A', '6'
	msg[48], msg[49] = '1', '2'

	type TC struct {
		msg []byte
		nil bool
	}

	tc := []TC{
		{msg: nil, nil: true},
		{msg: msg[:MsgSz-1], nil: true},
		{msg: msg, nil: false},
	}

	for _, c := range tc {

		s := newStatus(c.msg)
		d := fmt.Sprintf("newStatus([%d bytes]) == %+v", len(c.msg), s)

		if c.nil != (nil == s) {
			t.Errorf("[ ] FAIL: %s | nil=%t", d, nil == s)
			continue
		}
		if nil == s {
			t.Logf("[ ] PASS: %s", d)
			continue
		}

		if s.cmd == cmdStatus && s.ok &&
			s.i2cState == i2cStateWritingNoStop &&
			s.i2cReqSz == 0x1234 && s.i2cSentSz == 3 && s.i2cAddr == 0xC0 &&
			s.hwRev == "A.6" && s.fwRev == "1.2" {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s", d)
		}
	}
}

func TestI2CStateErr(t *testing.T) {

	type TC struct {
		state byte
		err   error
	}

	tc := []TC{
		{state: WordClr, err: nil},
		{state: i2cStatePartialData, err: nil},
		{state: i2cStateWritingNoStop, err: nil},
		{state: i2cStateAddrNACK, err: ErrNACK},
		{state: i2cStateStartTimeout, err: ErrTimeout},
		{state: i2cStateRepStartTimeout, err: ErrTimeout},
		{state: i2cStateStopTimeout, err: ErrTimeout},
		{state: i2cStateAddrTimeout, err: ErrTimeout},
		{state: i2cStateWriteTimeout, err: ErrTimeout},
		{state: i2cStateReadTimeout, err: ErrTimeout},
	}

	for _, c := range tc {

		e := i2cStateErr(c.state, 0x60)
		d := fmt.Sprintf("i2cStateErr(0x%02X, 0x60) == %v", c.state, e)

		if (nil == c.err && nil == e) || (nil != c.err && errors.Is(e, c.err)) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | != %v", d, c.err)
		}
	}
}

func TestNilDevice(t *testing.T) {

	var m *MCP2221A

	type TC struct {
		name string
		fn   func() error
		err  error
	}

	tc := []TC{
		{name: "Close", fn: func() error { return m.Close() }, err: ErrNilDevice},
		{name: "I2CWrite", fn: func() error { return m.I2CWrite(true, 0x60, []byte{0x00}) }, err: ErrNilDevice},
		{name: "I2CRead", fn: func() error { _, err := m.I2CRead(false, 0x60, 1); return err }, err: ErrNilDevice},
		{name: "I2CScan", fn: func() error { _, err := m.I2CScan(0x60, 0x67); return err }, err: ErrNilDevice},
		{name: "Reset", fn: func() error { return m.Reset(0) }, err: ErrNilDevice},
		{name: "Tx", fn: func() error { return m.Tx(0x60, []byte{0x00, 0x08, 0x00}) }, err: ErrNilDevice},
		{
			name: "Bus",
			fn: func() error {
				b := (&MCP2221A{}).Bus()
				b.BeginTransaction(0x60)
				b.WriteByte(0x00)
				return b.EndTransaction()
			},
			err: ErrNilDevice,
		},
	}

	for _, c := range tc {

		e := c.fn()
		d := fmt.Sprintf("(nil).%s() == %v", c.name, e)

		if errors.Is(e, c.err) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | != %v", d, c.err)
		}
	}
}

func TestI2CSetConfigBaud(t *testing.T) {

	m := &MCP2221A{}

	type TC struct {
		baud uint32
		err  error
	}

	tc := []TC{
		{baud: ClkHz/3 + 1, err: fmt.Errorf("invalid baud rate: %d", ClkHz/3+1)},
		{baud: ClkHz/258 - 1, err: fmt.Errorf("invalid baud rate: %d", ClkHz/258-1)},
		{baud: I2CBaudRate, err: ErrNilDevice},
	}

	for _, c := range tc {

		e := m.I2CSetConfig(c.baud)
		d := fmt.Sprintf("I2CSetConfig(%d) == %v", c.baud, e)

		if nil != e && (errors.Is(e, c.err) || c.err.Error() == e.Error()) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | != %v", d, c.err)
		}
	}
}

func TestI2CWriteEmpty(t *testing.T) {

	m := &MCP2221A{Device: nil}

	if e := m.I2CWrite(true, 0x60, nil); errors.Is(e, ErrNilDevice) {
		t.Logf("[ ] PASS: I2CWrite(nil device, empty) == %v", e)
	} else {
		t.Errorf("[ ] FAIL: I2CWrite(nil device, empty) == %v", e)
	}
}
