package main

import (
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
