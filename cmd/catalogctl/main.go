// Command catalogctl is the operator CLI for the catalog: it prints the
// category tree, seeds a catalog from YAML and triggers background jobs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
