// Command roastcheck groups the factcheck and roast filters with model
// listing and a backend sanity check under one binary.
package main

import (
	"os"

	"roastcheck/internal/cli"
)

func main() {
	os.Exit(cli.MainRoot())
}
