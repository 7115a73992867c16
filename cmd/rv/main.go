// Command rv relays text messages and files between machines on a LAN.
package main

import (
	"os"

	"github.com/Iron-Ham/raven/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
