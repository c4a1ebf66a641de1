package cmds

import (
	"errors"
	"fmt"

	"vmpatch/hexdump"
	"vmpatch/process"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// patchCommand is the root command: report the target and, given the
// expected, patched and address triple, patch it.
type patchCommand struct {
	*app

	expected string
	patched  string
	address  string

	writeFlags
}

// writeFlags are shared by every command that may write memory.
type writeFlags struct {
	revert bool
	dryRun bool
	yes    bool
}

func (w *writeFlags) bindWriteFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&w.revert, "revert", false, "Swap expected and patched memory to undo a patch.")
	flags.BoolVar(&w.dryRun, "dry-run", false, "Only report whether memory holds the expected or patched bytes.")
	flags.BoolVarP(&w.yes, "yes", "y", false, "Do not ask for confirmation before writing.")
}

// patchJob is one verified write.
type patchJob struct {
	name        string
	expected    []byte
	replacement []byte
	addr        process.ProcessMemoryAddress
}

func (pc *patchCommand) run(cmd *cobra.Command, args []string) error {
	t, err := pc.open(pc.input)
	if err != nil {
		return err
	}
	defer t.Close()

	if pc.expected == "" || pc.patched == "" || pc.address == "" {
		if pc.expected != "" || pc.patched != "" || pc.address != "" {
			pc.con.Warn("Nothing patched: --expected, --patched and --address are needed together")
		}
		return nil
	}

	offset, err := hexdump.ParseAddress(pc.address)
	if err != nil {
		return fmt.Errorf("offset address not valid: %w", err)
	}
	expected, err := hexdump.Decode(pc.expected)
	if err != nil {
		return fmt.Errorf("expected memory: %w", err)
	}
	patched, err := hexdump.Decode(pc.patched)
	if err != nil {
		return fmt.Errorf("patched memory: %w", err)
	}

	addr := t.BaseAddress() + process.ProcessMemoryAddress(offset)
	pc.con.Infoln("Patch Address:", addr)

	return pc.app.patch(t, pc.job("", expected, patched, addr), pc.writeFlags)
}

func (w writeFlags) job(name string, expected, patched []byte, addr process.ProcessMemoryAddress) patchJob {
	if w.revert {
		expected, patched = patched, expected
	}
	return patchJob{name: name, expected: expected, replacement: patched, addr: addr}
}

func (j patchJob) String() string {
	s := fmt.Sprintf("%s: %s -> %s", j.addr, hexdump.Encode(j.expected), hexdump.Encode(j.replacement))
	if j.name != "" {
		s = j.name + " at " + s
	}
	return s
}

// patch runs one job. In dry-run mode it only checks the current bytes.
func (a *app) patch(mem process.Memory, j patchJob, w writeFlags) error {
	if w.dryRun {
		state, err := process.Check(mem, j.expected, j.replacement, j.addr)
		if err != nil {
			a.reportMismatch(err, j.addr, j.expected)
			return err
		}
		switch state {
		case process.PatchStateApplied:
			a.con.Infoln("Already patched", j)
		default:
			a.con.Infoln("Would patch", j)
		}
		return nil
	}

	if a.con.interactive && !w.yes {
		ok, err := a.con.confirm(fmt.Sprintf("Patch %s?", j))
		if err != nil {
			return err
		}
		if !ok {
			return errDeclined
		}
	}

	err := process.Patch(mem, j.expected, j.replacement, j.addr)
	if err != nil {
		if !errors.Is(err, process.ErrAlreadyPatched) {
			a.reportMismatch(err, j.addr, j.replacement)
		}
		return err
	}

	a.con.Infoln("Memory correctly patched at", j)
	return nil
}
