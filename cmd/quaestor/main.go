package main

import (
	"os"

	"github.com/quaestor-dev/quaestor/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
