package cmds

import (
	"fmt"
	"strconv"

	"vmpatch/coloransi"
	"vmpatch/hexdump"
	"vmpatch/table"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// processFacts is what the OS reports about a process outside its memory.
type processFacts struct {
	name    string
	state   string
	threads int
}

type infoCommand struct {
	*app

	maps bool
}

func newInfoCommand(a *app) *cobra.Command {
	ic := &infoCommand{app: a}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show where the target's main executable is mapped.",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  ic.run,
	}
	infoCmd.Flags().BoolVar(&ic.maps, "maps", false, "Also list the memory regions backed by the executable.")

	return infoCmd
}

func (ic *infoCommand) run(cmd *cobra.Command, args []string) error {
	t, err := ic.open(ic.input)
	if err != nil {
		return err
	}
	defer t.Close()

	value := table.ColumnSpec{Header: "VALUE"}
	if ic.con.color {
		value.FormatFunc = table.Colorizer(coloransi.Cyan)
	}
	facts := table.New(table.ColumnSpec{Header: "FIELD"}, value)
	facts.AddRow("pid", strconv.Itoa(int(t.GetPID())))
	if pf, err := describeProcess(t.GetPID()); err != nil {
		ic.con.Debugln("No process details:", err)
	} else {
		facts.AddRow("name", pf.name)
		facts.AddRow("state", pf.state)
		facts.AddRow("threads", strconv.Itoa(pf.threads))
	}
	facts.AddRow("executable", t.ExecutablePath())
	facts.AddSeparator()
	facts.AddRow("pie", strconv.FormatBool(t.IsPIE()))
	facts.AddRow("base address", t.BaseAddress().String())
	facts.AddRow("default base", t.DefaultBaseAddress().String())
	facts.AddRow("aslr offset", t.ASLROffset().String())
	facts.AddRow("image size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(t.ImageSize())), t.ImageSize()))
	facts.AddRow("access", ic.cfg.Access)

	out := cmd.OutOrStdout()
	if err := facts.Render(out); err != nil {
		return err
	}

	if !ic.maps {
		return nil
	}

	regions, err := t.GetMemoryMap()
	if err != nil {
		return err
	}

	perms := table.ColumnSpec{Header: "PERMS"}
	if ic.con.color {
		perms.FormatFunc = table.PermsFormatter
	}
	maps := table.New(
		table.ColumnSpec{Header: "START", AlignRight: true},
		table.ColumnSpec{Header: "END", AlignRight: true},
		perms,
		table.ColumnSpec{Header: "OFFSET", AlignRight: true},
		table.ColumnSpec{Header: "SIZE", AlignRight: true},
		table.ColumnSpec{Header: "PATH"},
	)
	for _, region := range regions {
		maps.AddRow(
			hexdump.FormatAddress(region.Address),
			hexdump.FormatAddress(region.End()),
			region.Perms,
			hexdump.FormatAddress(region.Offset),
			humanize.IBytes(uint64(region.Size)),
			region.Path,
		)
	}

	fmt.Fprintln(out)
	return maps.Render(out)
}
