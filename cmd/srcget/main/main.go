package main

import (
	"os"

	"github.com/pterm/pterm"

	"github.com/srcget/srcget/cmd/srcget"
)

func main() {
	rootCmd := srcget.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
