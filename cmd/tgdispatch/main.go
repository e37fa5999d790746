// Command tgdispatch runs the dice bot on the update demultiplexing pipeline
// and offers a few operator commands around it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
