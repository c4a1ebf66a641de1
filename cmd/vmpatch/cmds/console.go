package cmds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"vmpatch/coloransi"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/mattn/go-isatty"
)

// console is the only logging surface of the tool. Debug lines are dropped
// unless verbose is set.
type console struct {
	log     *logger.Logger
	verbose bool
	color   bool

	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func newConsole(verbose, color bool, in io.Reader, out, errOut io.Writer) *console {
	name := "vmpatch"
	if color {
		name = coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, name)
	}
	return &console{
		log:         logger.NewLogger(name),
		verbose:     verbose,
		color:       color,
		in:          in,
		out:         out,
		errOut:      errOut,
		interactive: isTerminal(in),
	}
}

func (c *console) Infoln(v ...interface{}) {
	c.log.Infoln(v...)
}

func (c *console) Debugln(v ...interface{}) {
	if c.verbose {
		c.log.Debugln(v...)
	}
}

func (c *console) Warn(v ...interface{}) {
	c.log.Warn(v...)
}

// confirm asks a yes/no question on the terminal. Anything but y or yes is a no.
func (c *console) confirm(question string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type fileDescriptor interface {
	Fd() uintptr
}

func isTerminal(v interface{}) bool {
	f, ok := v.(fileDescriptor)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// useColor resolves the auto|always|never setting against out.
func useColor(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		return isTerminal(out)
	}
}
