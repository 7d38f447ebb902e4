package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/mcp47x6"
	"github.com/ardnew/mcp47x6/internal/log"
)

func NewConfigCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			if err := opts.cfg.Persist(force); err != nil {
				return err
			}
			log.Info("configuration written to %s", opts.cfg.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func NewShowCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the encoded command byte and level bytes without bus traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := opts.cfg.DeviceConfig
			variant, err := dc.Model()
			if err != nil {
				return err
			}
			settings, err := dc.Settings()
			if err != nil {
				return err
			}
			dac := mcp47x6.New(nil, variant, dc.Address, settings)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "device:  %s at 0x%02X (%d-bit)\n", variant, dac.Address(), variant.Resolution())
			fmt.Fprintf(out, "command: 0x%02X [0b%08b]\n", dac.Command(), dac.Command())
			fmt.Fprintf(out, "level:   %d -> % X\n", variant.Level(settings.Level), variant.LevelBytes(settings.Level))
			return nil
		},
	}
	addSettingsFlags(cmd, opts.cfg.DeviceConfig)
	cmd.Flags().StringVar(&opts.cfg.DeviceConfig.Memory, "memory", opts.cfg.DeviceConfig.Memory,
		"Memory target: volatile-dac, volatile-command, all, volatile-config")
	return cmd
}

func NewWriteCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write the command byte and output level to the selected memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			memory, err := mcp47x6.ParseMemoryWrite(opts.cfg.DeviceConfig.Memory)
			if err != nil {
				return err
			}
			dac, l, err := openDevice(opts)
			if err != nil {
				return err
			}
			defer l.Close()

			if err := dac.DownloadParameters(memory); err != nil {
				log.Error("write to 0x%02X failed: %v", dac.Address(), err)
				return err
			}
			printDry(cmd.OutOrStdout(), l)
			log.Info("wrote %s", dac)
			return nil
		},
	}
	addSettingsFlags(cmd, opts.cfg.DeviceConfig)
	cmd.Flags().StringVar(&opts.cfg.DeviceConfig.Memory, "memory", opts.cfg.DeviceConfig.Memory,
		"Memory target: volatile-dac, volatile-command, all, volatile-config")
	return cmd
}

func NewFastCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fast",
		Short: "Write only the output level to the volatile DAC register",
		RunE: func(cmd *cobra.Command, args []string) error {
			dac, l, err := openDevice(opts)
			if err != nil {
				return err
			}
			defer l.Close()

			last, err := dac.SetOutputLevelVolatileFast(opts.cfg.DeviceConfig.Level)
			if err != nil {
				log.Error("fast write to 0x%02X failed: %v", dac.Address(), err)
				return err
			}
			printDry(cmd.OutOrStdout(), l)
			log.Info("level %d written (last byte 0x%02X)", dac.Settings().Level, last)
			return nil
		},
	}
	addSettingsFlags(cmd, opts.cfg.DeviceConfig)
	return cmd
}

func NewScanCommand(opts *options) *cobra.Command {
	var start, stop uint8
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the addresses that respond on the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLink(opts)
			if err != nil {
				return err
			}
			defer l.Close()

			if nil == l.scanner {
				return fmt.Errorf("transport %q cannot scan", opts.cfg.TransportConfig.Kind)
			}
			found, err := l.scanner.Scan(start, stop)
			if err != nil {
				return err
			}
			for _, addr := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%02X\n", addr)
			}
			log.Info("%d device(s) found in [0x%02X, 0x%02X]", len(found), start, stop)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&start, "start", mcp47x6.MinAddress, "First address to probe")
	cmd.Flags().Uint8Var(&stop, "stop", mcp47x6.MaxAddress, "Last address to probe")
	return cmd
}
