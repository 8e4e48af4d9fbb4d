// SPDX-FileCopyrightText: 2026 The bootstage authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hvforge/bootstage/internal/bootheader"
	"github.com/hvforge/bootstage/internal/exitcode"
	"github.com/hvforge/bootstage/internal/launch"
	"github.com/hvforge/bootstage/internal/media"
)

// errUsage marks errors caused by invalid invocation rather than a failed
// pipeline phase.
var errUsage = errors.New("invalid usage")

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	root := NewRootCommand()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("bootstage failed", slog.Any("error", err))

		if errors.Is(err, errUsage) {
			return exitcode.CodeUsage
		}

		return exitcode.For(err)
	}

	return exitcode.Success
}

// NewRootCommand builds the bootstage command tree.
func NewRootCommand() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "bootstage",
		Short:         "Assemble boot media and launch hypervisor VM sessions",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().BoolVar(
		&debug, "debug", false, "enable debug logging",
	)

	root.PersistentPreRun = func(*cobra.Command, []string) {
		setupLogging(debug)
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	root.AddCommand(
		newRunCommand(),
		newBuildCommand(),
		newInspectCommand(),
	)

	return root
}

func newRunCommand() *cobra.Command {
	var flags launchFlags

	cmd := &cobra.Command{
		Use:   "run [binary] [-- monitor args...]",
		Short: "Build boot media and run a VM session with it",
		Long: "Build boot media for the given binary and block for the " +
			"VM session.\nArguments after -- are passed to the monitor " +
			"last and override defaults.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional := args
			var extraTokens []string

			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				positional, extraTokens = args[:dash], args[dash:]
			}

			input, err := flags.input(cmd.Flags(), positional)
			if err != nil {
				return err
			}

			extraArgs, err := parseMonitorArgs(extraTokens)
			if err != nil {
				return err
			}

			input.Options.ExtraMonitorArgs = extraArgs

			result, err := launch.Run(
				cmd.Context(), input, cmd.OutOrStdout(), cmd.ErrOrStderr(),
			)
			if err != nil {
				return err
			}

			slog.Info("session finished",
				slog.Int("exitcode", result.ExitCode),
				slog.String("debuglog", result.DebugLogPath),
			)

			if result.ExitCode != 0 {
				return exitcode.Error(result.ExitCode)
			}

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newBuildCommand() *cobra.Command {
	var (
		flags  launchFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "build [binary]",
		Short: "Assemble the boot media without launching a VM",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := flags.input(cmd.Flags(), args)
			if err != nil {
				return err
			}

			input.OutputPath = output

			artifact, workDir, err := launch.Build(cmd.Context(), input)
			if err != nil {
				return err
			}
			defer workDir.Remove() //nolint:errcheck

			if input.Protocol == media.ProtocolRawMultiboot {
				// The input binary is the artifact; nothing to keep.
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: valid boot binary\n", input.BinaryPath)

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), artifact.Path)

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(
		&output, "output", "o", "", "path the produced image is written to",
	)

	return cmd
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect binary",
		Short: "Validate and describe the boot header of a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := bootheader.ValidateFile(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"%s header at offset %d\n",
				location.Variant, location.Offset,
			)

			return nil
		},
	}
}

// launchFlags is the flag set shared by the run and build commands.
type launchFlags struct {
	configPath string
	protocol   string
	payloads   []string
	guestRoot  string

	executable  string
	firmware    string
	memory      string
	smp         uint64
	cpu         string
	kvm         bool
	networking  bool
	tap         string
	debugLog    string
	gdbPort     uint16
	autoRestart bool
}

func (f *launchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVarP(&f.configPath, "config", "c", "",
		"YAML config file with launch options")
	flags.StringVarP(&f.protocol, "protocol", "p",
		media.ProtocolRawMultiboot.String(),
		"boot protocol (multiboot, iso, uefi)")
	flags.StringArrayVar(&f.payloads, "payload", nil,
		"auxiliary file staged next to the binary, repeatable")
	flags.StringVar(&f.guestRoot, "guest-root", "",
		"directory packed into a guest initramfs archive")

	flags.StringVar(&f.executable, "monitor", "",
		"monitor binary to use")
	flags.StringVar(&f.firmware, "firmware", "",
		"firmware blob passed to the monitor")
	flags.StringVarP(&f.memory, "memory", "m", "",
		"guest memory size, e.g. 512M or 2G")
	flags.Uint64Var(&f.smp, "smp", 0, "number of guest CPUs")
	flags.StringVar(&f.cpu, "cpu", "", "guest CPU model")
	flags.BoolVar(&f.kvm, "kvm", false, "enable hardware acceleration")
	flags.BoolVar(&f.networking, "net", false,
		"attach a tap backed network device")
	flags.StringVar(&f.tap, "tap", "", "host tap interface name")
	flags.StringVar(&f.debugLog, "debug-log", "",
		"debug console capture file")
	flags.Uint16Var(&f.gdbPort, "gdb", 0,
		"expose a gdb stub on the given port and halt until attach")
	flags.BoolVar(&f.autoRestart, "auto-restart", false,
		"let the guest reset on triple faults instead of terminating")
}

// input merges config file values and flags into the launch input. Flags
// set explicitly win over file values.
func (f *launchFlags) input(
	flags *pflag.FlagSet,
	args []string,
) (*launch.Input, error) {
	config := &Config{}

	if f.configPath != "" {
		loaded, err := LoadConfig(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}

		config = loaded
	}

	binary := config.Binary
	if len(args) > 0 {
		binary = args[0]
	}

	if binary == "" {
		return nil, fmt.Errorf("%w: no boot binary given", errUsage)
	}

	protocol := config.Protocol
	if protocol == "" {
		protocol = media.ProtocolRawMultiboot
	}

	if flags.Changed("protocol") {
		protocol = media.BootProtocol(f.protocol)
	}

	if protocol.String() == "" {
		return nil, fmt.Errorf("%w: %s", media.ErrProtocolUnknown, protocol)
	}

	memory, err := mergedMemory(flags, f.memory, config.Monitor.Memory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	monitor := config.Monitor

	input := &launch.Input{
		BinaryPath:   binary,
		Payloads:     append(config.Payloads, f.payloads...),
		GuestRootDir: pick(flags, "guest-root", f.guestRoot, config.GuestRoot),
		Protocol:     protocol,
		Options: launch.Options{
			Executable:          pick(flags, "monitor", f.executable, monitor.Executable),
			FirmwarePath:        pick(flags, "firmware", f.firmware, monitor.Firmware),
			Memory:              memory,
			SMP:                 pick(flags, "smp", f.smp, monitor.SMP),
			CPU:                 pick(flags, "cpu", f.cpu, monitor.CPU),
			EnableHardwareAccel: pick(flags, "kvm", f.kvm, monitor.KVM),
			NetworkingEnabled:   pick(flags, "net", f.networking, monitor.Networking),
			TapDevice:           pick(flags, "tap", f.tap, monitor.Tap),
			DebugLogPath:        pick(flags, "debug-log", f.debugLog, monitor.DebugLog),
			RemoteDebugPort:     pick(flags, "gdb", f.gdbPort, monitor.GDBPort),
			AutoRestart:         pick(flags, "auto-restart", f.autoRestart, monitor.AutoRestart),
		},
	}

	return input, nil
}

// pick returns the flag value if the flag was set explicitly or the config
// file has no value, the config value otherwise.
func pick[T comparable](
	flags *pflag.FlagSet,
	name string,
	flagValue, configValue T,
) T {
	var zero T

	if flags.Changed(name) || configValue == zero {
		return flagValue
	}

	return configValue
}

func mergedMemory(
	flags *pflag.FlagSet,
	flagValue, configValue string,
) (uint64, error) {
	size := pick(flags, "memory", flagValue, configValue)
	if size == "" {
		return 0, nil
	}

	return parseMemory(size)
}
