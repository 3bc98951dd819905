// Command seriesml runs the statistics, training and validation jobs over
// date-keyed feature records on the local map/reduce substrate.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seriesml:", err)
		os.Exit(1)
	}
}
