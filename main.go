package main

import (
	"os"

	"github.com/adalundhe/janitor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
