package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/profilecore/internal/domain/profile"
)

var lockCmd = &cobra.Command{
	Use:   "lock <target>",
	Short: "Resolve and print a profile's locked dependency graph",
	Long: `Lock resolves target's declared dependencies against the vendor
cache (the current directory if target is itself a local directory,
otherwise the configured cache directory) and prints the resulting
install order.

Examples:
  profilecore lock ./my-profile`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
}

func runLock(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	graph, err := a.LockedDependencies(context.Background(), args[0], profile.Options{})
	if err != nil {
		return err
	}

	order := graph.TopologicalOrder()
	if len(order) == 0 {
		fmt.Println("no dependencies")
		return nil
	}
	specs := graph.Specs()
	for _, name := range order {
		fmt.Printf("%s\n", specs[name])
	}
	return nil
}
