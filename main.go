package main

import (
	"os"

	"github.com/Dancode-188/graft/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
