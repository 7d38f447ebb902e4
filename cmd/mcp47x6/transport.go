package main

import (
	"fmt"
	"io"

	"github.com/ardnew/mcp47x6"
	"github.com/ardnew/mcp47x6/bus"
	"github.com/ardnew/mcp47x6/bus/bustest"
	"github.com/ardnew/mcp47x6/bus/mcp2221a"
	"github.com/ardnew/mcp47x6/bus/periph"
	"github.com/ardnew/mcp47x6/bus/smbus"
	"github.com/ardnew/mcp47x6/internal/config"
	"github.com/ardnew/mcp47x6/internal/log"
)

// link is an opened transport.
type link struct {
	bus     mcp47x6.Bus
	scanner bus.Scanner
	close   func() error
	dry     *bustest.Recorder
}

func (l *link) Close() error {
	if nil == l.close {
		return nil
	}
	return l.close()
}

// openLink opens the transport selected by the configuration. In dry-run mode
// a recorder stands in for the hardware.
func openLink(opts *options) (*link, error) {

	if opts.dryRun {
		rec := &bustest.Recorder{}
		return &link{bus: rec, dry: rec}, nil
	}

	tc := opts.cfg.TransportConfig
	log.Debug("opening %s transport", tc.Kind)

	switch tc.Kind {
	case config.TransportMCP2221A:
		m, err := mcp2221a.New(tc.Index, mcp2221a.VID, mcp2221a.PID)
		if err != nil {
			return nil, fmt.Errorf("mcp2221a.New(): %w", err)
		}
		m.Log = log.Trace()
		if tc.Baud != 0 {
			if err := m.I2CSetConfig(tc.Baud); err != nil {
				m.Close()
				return nil, fmt.Errorf("I2CSetConfig(): %w", err)
			}
		}
		if hw, fw, err := m.Revision(); err == nil {
			log.Debug("MCP2221A hardware rev %s, firmware rev %s", hw, fw)
		}
		return &link{bus: m.Bus(), scanner: m, close: m.Close}, nil

	case config.TransportPeriph:
		p, err := periph.Open(tc.Bus)
		if err != nil {
			return nil, err
		}
		log.Debug("using %s", p)
		return &link{bus: p.Bus(), scanner: p, close: p.Close}, nil

	case config.TransportSMBus:
		s, err := smbus.Open(tc.SMBus, opts.cfg.DeviceConfig.Address)
		if err != nil {
			return nil, err
		}
		return &link{bus: s.Bus(), close: s.Close}, nil
	}

	return nil, fmt.Errorf("unknown transport %q", tc.Kind)
}

// openDevice opens the transport and builds a driver from the configuration.
func openDevice(opts *options) (*mcp47x6.MCP47X6, *link, error) {

	dc := opts.cfg.DeviceConfig
	variant, err := dc.Model()
	if err != nil {
		return nil, nil, err
	}
	settings, err := dc.Settings()
	if err != nil {
		return nil, nil, err
	}

	l, err := openLink(opts)
	if err != nil {
		return nil, nil, err
	}

	dac := mcp47x6.New(l.bus, variant, dc.Address, settings)
	dac.Log = log.Trace()
	log.Debug("device %s", dac)

	return dac, l, nil
}

// printDry prints the frames captured in dry-run mode.
func printDry(out io.Writer, l *link) {
	if nil == l.dry {
		return
	}
	for _, tx := range l.dry.Ops {
		fmt.Fprintf(out, "0x%02X <- % X\n", tx.Addr, tx.Bytes)
	}
}
