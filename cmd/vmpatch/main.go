package main

import (
	"os"

	"vmpatch/cmd/vmpatch/cmds"
)

func main() {
	os.Exit(cmds.Run(cmds.New(), os.Args[1:]))
}
