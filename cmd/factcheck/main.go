// Command factcheck reads {"targetMessage": ...} on stdin and prints a short
// verdict on whether the statement is true.
package main

import (
	"os"

	"roastcheck/internal/cli"
	"roastcheck/internal/prompt"
)

func main() {
	os.Exit(cli.Main(prompt.TaskFactCheck))
}
