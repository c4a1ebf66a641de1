package cmds

import (
	"fmt"
	"runtime"

	"vmpatch/hexdump"
	"vmpatch/process"
	"vmpatch/search"

	"github.com/spf13/cobra"
)

type findCommand struct {
	*app

	pattern string
	jobs    int
}

func newFindCommand(a *app) *cobra.Command {
	fc := &findCommand{app: a}

	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Find a byte pattern in the target's main executable.",
		Long: `Search the readable regions of the target's main executable for a hex
pattern and print every match as an offset from the image base, ready for
--address. "??" matches any byte:

  vmpatch find -i someprogram -p "74 05 ?? 90"`,
		Args: usageArgs(cobra.NoArgs),
		RunE: fc.run,
	}
	findCmd.Flags().StringVarP(&fc.pattern, "pattern", "p", "", `Hex pattern, "??" for any byte.`)
	findCmd.Flags().IntVarP(&fc.jobs, "jobs", "j", runtime.NumCPU(), "Regions read in parallel.")

	return findCmd
}

func (fc *findCommand) run(cmd *cobra.Command, args []string) error {
	if fc.pattern == "" {
		return usagef("no pattern specified, use -p")
	}
	aob, err := search.ParseAOB(fc.pattern)
	if err != nil {
		return usagef("pattern: %v", err)
	}

	t, err := fc.open(fc.input)
	if err != nil {
		return err
	}
	defer t.Close()

	regions, err := t.GetMemoryMap()
	if err != nil {
		return err
	}
	var ranges []process.AddressRange
	for _, region := range regions {
		if region.IsReadable() {
			ranges = append(ranges, process.NewAddressRange(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size)))
		}
	}

	fc.con.Debugln("Searching", len(ranges), "regions for", aob)
	res, err := search.Scan(cmd.Context(), t, ranges, aob, fc.jobs)
	if err != nil {
		return err
	}
	for _, r := range res.Skipped {
		fc.con.Debugln("Skipped unreadable region", r)
	}

	for _, addr := range res.Matches {
		fmt.Fprintln(cmd.OutOrStdout(), hexdump.FormatAddress(uint64(addr-t.BaseAddress())))
	}
	fc.con.Infoln("Found", len(res.Matches), "matches for", aob)
	return nil
}
