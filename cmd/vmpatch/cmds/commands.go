// Package cmds implements the vmpatch command line.
package cmds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"vmpatch/config"
	"vmpatch/hexdump"
	"vmpatch/process"
	"vmpatch/process/memory_map"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const vmpatchCommandLongDesc = `vmpatch inspects and patches the memory of a running process.

The target is given with -i as a PID, a process name, or "-" for vmpatch
itself. Addresses are hex offsets from the base address of the target's main
executable image, so they stay valid across ASLR.

A patch only writes when the bytes at the address equal the expected bytes,
and it is verified by reading the memory back. Attaching to another process
requires root.`

// target is an opened address space plus the image facts info reports.
type target interface {
	process.AddressSpace
	DefaultBaseAddress() process.ProcessMemoryAddress
	ImageSize() process.ProcessMemorySize
	IsPIE() bool
	ExecutablePath() string
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)
}

// app holds the state shared by every command of one invocation.
type app struct {
	configPath string
	input      string
	verbose    bool
	access     string
	resolver   string

	cfg *config.Config
	con *console
}

// New returns the root command.
func New() *cobra.Command {
	a := &app{}

	rootCommand := &cobra.Command{
		Use:           "vmpatch",
		Short:         "Inspect and patch the memory of a running process.",
		Long:          vmpatchCommandLongDesc,
		Args:          usageArgs(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCommand.CompletionOptions.DisableDefaultCmd = true
	rootCommand.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCommand.PersistentFlags().StringVarP(&a.input, "input", "i", "", `Input process name or PID ("-" for vmpatch itself).`)
	rootCommand.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose mode.")
	rootCommand.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/vmpatch/config.yml).")
	rootCommand.PersistentFlags().StringVar(&a.access, "access", "procmem", "Memory access backend: procmem or vm.")
	rootCommand.PersistentFlags().StringVar(&a.resolver, "resolver", "auto", "Process name resolver: auto, pgrep or proc.")

	pc := &patchCommand{app: a}
	rootCommand.Flags().StringVarP(&pc.expected, "expected", "e", "", "Expected memory as a hex string.")
	rootCommand.Flags().StringVarP(&pc.patched, "patched", "d", "", "Patched memory as a hex string.")
	rootCommand.Flags().StringVarP(&pc.address, "address", "a", "", "Memory offset to patch (hex, relative to the image base).")
	pc.bindWriteFlags(rootCommand.Flags())
	rootCommand.RunE = pc.run

	rootCommand.AddCommand(newReadCommand(a))
	rootCommand.AddCommand(newApplyCommand(a))
	rootCommand.AddCommand(newInfoCommand(a))
	rootCommand.AddCommand(newFindCommand(a))

	return rootCommand
}

// Run executes cmd with args and returns the process exit status.
// An interrupt cancels the command's context.
func Run(cmd *cobra.Command, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd.SetArgs(args)
	c, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(cmd.ErrOrStderr(), c.UsageString())
		return exitUsage
	}
	return exitFailure
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// setup merges the config file with the command line. Flags win.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("access") {
		cfg.Access = a.access
	}
	if flags.Changed("resolver") {
		cfg.Resolver = a.resolver
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{err: err}
	}

	a.cfg = cfg
	a.con = newConsole(cfg.Verbose, useColor(cfg.Color, cmd.OutOrStdout()), os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return nil
}

// open resolves input, checks privilege and opens the target.
func (a *app) open(input string) (target, error) {
	if input == "" {
		return nil, usagef("no process specified, use -i")
	}

	resolver, err := newResolver(a.cfg.Resolver)
	if err != nil {
		return nil, err
	}
	pid, err := process.ResolveTarget(input, resolver)
	if err != nil {
		return nil, err
	}

	if err := checkPrivilege(pid); err != nil {
		return nil, err
	}

	t, err := openTarget(pid, a.cfg.Access)
	if err != nil {
		return nil, err
	}

	a.con.Infoln("PID:", t.GetPID())
	a.con.Infoln("ASLR Offset:", t.ASLROffset())
	a.con.Infoln("Base Address:", t.BaseAddress())
	a.con.Debugln("Executable:", t.ExecutablePath())
	return t, nil
}

func (a *app) dumpOptions() hexdump.HexDumpOptions {
	opts := hexdump.DefaultOptions()
	opts.BytesPerLine = a.cfg.BytesPerLine
	opts.Color = a.con.color
	return opts
}

// reportMismatch logs a hex dump diff for patch errors that carry the bytes found.
func (a *app) reportMismatch(err error, addr process.ProcessMemoryAddress, want []byte) {
	var perr *process.PatchError
	if !errors.As(err, &perr) || perr.Actual == nil {
		return
	}
	expected := perr.Expected
	if expected == nil {
		expected = want
	}
	a.con.Warn("Memory at ", addr, " differs from what was expected:")
	fmt.Fprint(a.con.errOut, hexdump.DumpDiff(perr.Actual, expected, uint64(addr), a.dumpOptions()))
}

func hexFlag(flags *pflag.FlagSet, name string) (uint64, error) {
	s, err := flags.GetString(name)
	if err != nil {
		return 0, err
	}
	v, err := hexdump.ParseAddress(s)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return v, nil
}
