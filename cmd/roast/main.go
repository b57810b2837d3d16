// Command roast reads {"targetUsername": ..., "targetMessage": ...} on stdin
// and prints a short roast of the user.
package main

import (
	"os"

	"roastcheck/internal/cli"
	"roastcheck/internal/prompt"
)

func main() {
	os.Exit(cli.Main(prompt.TaskRoast))
}
