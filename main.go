package main

import (
	"os"

	"github.com/bassamadnan/mailagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
