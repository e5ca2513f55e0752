package main

import (
	"fmt"
	"os"

	_ "github.com/projectqai/fleetwatch/logging"

	"github.com/projectqai/fleetwatch/cmd"
)

func main() {
	if err := cmd.CMD.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
