// Command adacore builds structural models from scripts and converts
// between IFC, SAT and glTF.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "adacore:", err)
		os.Exit(1)
	}
}
