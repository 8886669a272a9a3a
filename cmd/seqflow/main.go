// Command seqflow explains and runs declarative query plans written in YAML
// against a small built-in catalog of demo sources.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
