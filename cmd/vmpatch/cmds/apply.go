package cmds

import (
	"errors"
	"fmt"

	"vmpatch/config"
	"vmpatch/process"

	"github.com/spf13/cobra"
)

type applyCommand struct {
	*app

	file string
	writeFlags
}

func newApplyCommand(a *app) *cobra.Command {
	ac := &applyCommand{app: a}

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply every patch of a profile.",
		Long: `Apply the patches listed in a YAML profile, in order:

  process: someprogram
  patches:
    - name: skip-check
      offset: 0x1A2B
      expected: 7405
      patched: 9090

Offsets are relative to the image base. Patches that are already applied are
skipped; any other failure stops the run. -i overrides the profile's process.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: ac.run,
	}
	applyCmd.Flags().StringVarP(&ac.file, "file", "f", "", "Patch profile (YAML).")
	ac.bindWriteFlags(applyCmd.Flags())

	return applyCmd
}

func (ac *applyCommand) run(cmd *cobra.Command, args []string) error {
	if ac.file == "" {
		return usagef("no profile specified, use -f")
	}

	profile, err := config.LoadProfile(ac.file)
	if err != nil {
		return err
	}
	patches, err := profile.Decode()
	if err != nil {
		return err
	}

	input := ac.input
	if input == "" {
		input = profile.Process
	}

	t, err := ac.open(input)
	if err != nil {
		return err
	}
	defer t.Close()

	applied, skipped := 0, 0
	for _, p := range patches {
		addr := t.BaseAddress() + process.ProcessMemoryAddress(p.Offset)
		err := ac.patch(t, ac.job(p.Name, p.Expected, p.Patched, addr), ac.writeFlags)
		switch {
		case errors.Is(err, process.ErrAlreadyPatched):
			ac.con.Infoln("Skipping", p.Name+": already patched")
			skipped++
		case err != nil:
			return fmt.Errorf("patch %s: %w", p.Name, err)
		default:
			applied++
		}
	}

	ac.con.Infoln("Profile done:", applied, "applied,", skipped, "skipped")
	return nil
}
