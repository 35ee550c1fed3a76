package main

import (
	"os"
	_ "time/tzdata"

	"github.com/BrandonDHaskell/tracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
