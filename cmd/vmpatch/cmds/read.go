package cmds

import (
	"fmt"

	"vmpatch/hexdump"
	"vmpatch/process"

	"github.com/spf13/cobra"
)

type readCommand struct {
	*app

	offset string
	size   int
}

func newReadCommand(a *app) *cobra.Command {
	rc := &readCommand{app: a}

	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read memory at an offset from the image base.",
		Long: `Read --size bytes at --offset (hex) from the base address of the target's
main executable and print them as a hex string. Verbose mode adds a hex dump.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: rc.run,
	}
	readCmd.Flags().StringVarP(&rc.offset, "offset", "o", "", "Memory offset to read (hex).")
	readCmd.Flags().IntVarP(&rc.size, "size", "z", 0, "Memory size to read.")

	return readCmd
}

func (rc *readCommand) run(cmd *cobra.Command, args []string) error {
	if rc.offset == "" {
		return usagef("no offset specified, use -o")
	}
	if rc.size <= 0 {
		return usagef("size must be positive, got %d", rc.size)
	}

	offset, err := hexFlag(cmd.Flags(), "offset")
	if err != nil {
		return fmt.Errorf("input memory offset not valid: %w", err)
	}

	t, err := rc.open(rc.input)
	if err != nil {
		return err
	}
	defer t.Close()

	r := process.NewAddressRange(t.BaseAddress()+process.ProcessMemoryAddress(offset), process.ProcessMemorySize(rc.size))
	rc.con.Debugln("Reading", r)

	data, err := t.ReadBytes(r)
	if err != nil {
		return err
	}

	rc.con.Infoln("Memory correctly read:", hexdump.Encode(data))
	fmt.Fprintln(cmd.OutOrStdout(), hexdump.Encode(data))
	if rc.con.verbose {
		opts := rc.dumpOptions()
		opts.StartOffset = uint64(r.Start)
		hexdump.DumpToWriter(cmd.OutOrStdout(), data, opts)
	}
	return nil
}
