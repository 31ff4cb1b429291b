// Command learnctl validates curriculum catalogs and runs a scripted
// learning session against an in-memory engine.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
