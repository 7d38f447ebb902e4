package periph

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/ardnew/mcp47x6"
)

// fakeBus acknowledges only the addresses in present and records writes.
type fakeBus struct {
	present map[uint16]bool
	writes  [][]byte
	addrs   []uint16
}

func (f *fakeBus) String() string                    { return "fake" }
func (f *fakeBus) SetSpeed(_ physic.Frequency) error { return nil }

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if !f.present[addr] {
		return errors.New("nack")
	}
	f.addrs = append(f.addrs, addr)
	f.writes = append(f.writes, append([]byte{}, w...))
	for i := range r {
		r[i] = 0xA5
	}
	return nil
}

func TestInitPlayback(t *testing.T) {

	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x60, W: []byte{0x00, 0x08, 0x00}},
		},
		DontPanic: true,
	}

	tr := New(pb)
	dac := mcp47x6.New(tr.Bus(), mcp47x6.MCP4726, 0x60, mcp47x6.Settings{Level: 2048})

	e := dac.Init()
	d := fmt.Sprintf("(%s).Init() == %v", dac, e)
	if nil == e {
		t.Logf("[ ] PASS: %s", d)
	} else {
		t.Errorf("[ ] FAIL: %s", d)
	}

	if err := pb.Close(); nil != err {
		t.Errorf("[ ] FAIL: playback not fully consumed: %v", err)
	}
}

func TestTx(t *testing.T) {

	type TC struct {
		addr  uint8
		frame []byte
		fail  bool
	}

	tc := []TC{
		{addr: 0x60, frame: []byte{0x79, 0x0F, 0xFF}, fail: false},
		{addr: 0x61, frame: []byte{0x00, 0x80}, fail: false},
		{addr: 0x62, frame: []byte{0x00, 0x00, 0x00}, fail: true},
	}

	for _, c := range tc {

		fb := &fakeBus{present: map[uint16]bool{0x60: true, 0x61: true}}
		tr := New(fb)

		e := tr.Tx(c.addr, c.frame)
		d := fmt.Sprintf("Tx(0x%02X, % X) == %v", c.addr, c.frame, e)

		if c.fail {
			if nil != e {
				t.Logf("[ ] PASS: %s", d)
			} else {
				t.Errorf("[ ] FAIL: %s | expected error", d)
			}
			continue
		}

		if nil == e && 1 == len(fb.writes) && bytes.Equal(fb.writes[0], c.frame) && uint16(c.addr) == fb.addrs[0] {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | writes=% X", d, fb.writes)
		}
	}
}

func TestDownloadParametersFailure(t *testing.T) {

	fb := &fakeBus{present: map[uint16]bool{}}
	dac := mcp47x6.New(New(fb).Bus(), mcp47x6.MCP4716, 0x63, mcp47x6.Settings{})

	e := dac.DownloadParameters(mcp47x6.WriteAllMemory)
	d := fmt.Sprintf("DownloadParameters(all) on absent device == %v", e)

	if errors.Is(e, mcp47x6.ErrTransaction) && mcp47x6.WriteAllMemory == dac.Settings().Memory {
		t.Logf("[ ] PASS: %s", d)
	} else {
		t.Errorf("[ ] FAIL: %s", d)
	}
}

func TestScan(t *testing.T) {

	type TC struct {
		start uint8
		stop  uint8
		found []uint8
		err   bool
	}

	tc := []TC{
		{start: 0x60, stop: 0x67, found: []uint8{0x60, 0x65}},
		{start: 0x61, stop: 0x64, found: []uint8{}},
		{start: 0x67, stop: 0x60, err: true},
	}

	for _, c := range tc {

		fb := &fakeBus{present: map[uint16]bool{0x60: true, 0x65: true}}
		found, e := New(fb).Scan(c.start, c.stop)
		d := fmt.Sprintf("Scan(0x%02X, 0x%02X) == (% X, %v)", c.start, c.stop, found, e)

		if c.err {
			if nil != e {
				t.Logf("[ ] PASS: %s", d)
			} else {
				t.Errorf("[ ] FAIL: %s | expected error", d)
			}
			continue
		}

		if nil == e && bytes.Equal(found, c.found) {
			t.Logf("[ ] PASS: %s", d)
		} else {
			t.Errorf("[ ] FAIL: %s | != % X", d, c.found)
		}
	}
}

func TestNilBus(t *testing.T) {

	tr := New(nil)

	if e := tr.Tx(0x60, []byte{0x00}); nil != e {
		t.Logf("[ ] PASS: (nil).Tx() == %v", e)
	} else {
		t.Errorf("[ ] FAIL: (nil).Tx() == nil")
	}

	if e := tr.Close(); nil == e {
		t.Logf("[ ] PASS: (nil).Close() == nil")
	} else {
		t.Errorf("[ ] FAIL: (nil).Close() == %v", e)
	}
}
