package main

import (
	"os"

	"github.com/eidetica/eidetica/internal/diag"
)

func main() {
	if err := diag.RootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
