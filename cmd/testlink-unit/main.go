// Command testlink-unit is a companion CLI for the TestLink integration:
// it can check connectivity, list and create test projects, and bulk-import
// test cases from manifest files.
package main

import (
	"fmt"
	"os"
)

func main() {
	var params commandParams
	command, args, ok := params.Read(os.Args)
	if !ok {
		os.Exit(1)
	}
	if err := run(params, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
