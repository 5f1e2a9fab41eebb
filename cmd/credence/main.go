package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "credence",
		Short: "Reputation market pricing engine",
	}
	root.AddCommand(
		runCmd(),
		quoteCmd(),
		versionCmd(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
