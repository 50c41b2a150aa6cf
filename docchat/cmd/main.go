// Command-line interface for docchat: manage sessions and documents and ask
// questions about them from a terminal.
package main

import (
	"fmt"
	"os"

	"docchat/docchat/utils/color"
)

func main() {
	root, c := newRootCmd()
	err := root.Execute()
	c.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError("error: ")+err.Error())
		os.Exit(1)
	}
}
