package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ardnew/mcp47x6/internal/config"
	"github.com/ardnew/mcp47x6/internal/log"
)

const (
	ConfigEnvName      = "MCP47X6_CONFIG"
	LogLevelOptionName = "log-level"
	DryRunOptionName   = "dry-run"
)

// options carries everything the subcommands share: the loaded configuration
// (already overridden by flags once cobra has parsed them) and the dry-run
// switch.
type options struct {
	cfg    *config.Config
	dryRun bool
}

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string

	cfg := config.NewDefaultConfig()
	if path := os.Getenv(ConfigEnvName); path != "" {
		cfg.WithPath(path)
	}
	loadErr := cfg.Load()

	opts := &options{cfg: cfg}

	cmd := &cobra.Command{
		Use:           "mcp47x6",
		Short:         "Tool to configure MCP4706/MCP4716/MCP4726 DACs over I²C",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := log.Init(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
				return err
			}
			if loadErr != nil {
				log.Warning("could not load %s: %v", cfg.Path(), loadErr)
			}
			return nil
		},
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().BoolVar(&opts.dryRun, DryRunOptionName, false, "Print the frames instead of sending them")

	tc := cfg.TransportConfig
	cmd.PersistentFlags().StringVar(&tc.Kind, "transport", tc.Kind, "Bus transport, one of: "+strings.Join(config.Transports, ", "))
	cmd.PersistentFlags().Uint8Var(&tc.Index, "index", tc.Index, "MCP2221A device index")
	cmd.PersistentFlags().Uint32Var(&tc.Baud, "baud", tc.Baud, "MCP2221A I²C baud rate")
	cmd.PersistentFlags().StringVar(&tc.Bus, "bus", tc.Bus, "periph I²C bus name (empty for the first bus)")
	cmd.PersistentFlags().IntVar(&tc.SMBus, "smbus", tc.SMBus, "SMBus bus number (/dev/i2c-N)")

	dc := cfg.DeviceConfig
	cmd.PersistentFlags().StringVar(&dc.Variant, "variant", dc.Variant, "Device model: MCP4706, MCP4716, MCP4726")
	cmd.PersistentFlags().Uint8Var(&dc.Address, "address", dc.Address, "7-bit device address")

	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewFastCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	return cmd
}

// addSettingsFlags binds the device setting flags of a subcommand to the
// configuration loaded from file.
func addSettingsFlags(cmd *cobra.Command, dc *config.DeviceConfig) {
	cmd.Flags().StringVar(&dc.VRef, "vref", dc.VRef, "Voltage reference: vdd, vref, vref-buffered")
	cmd.Flags().StringVar(&dc.Gain, "gain", dc.Gain, "Output gain: x1, x2")
	cmd.Flags().StringVar(&dc.Power, "power", dc.Power, "Power mode: normal, 1k, 100k, 500k")
	cmd.Flags().Uint16Var(&dc.Level, "level", dc.Level, "Output level on the 12-bit scale (0-4095)")
}
