// Command qbftsim runs an in-memory network of QBFT validators until every
// validator has finalized the requested number of heights.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := Command().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "qbftsim: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the root command of qbftsim.
func Command() *cobra.Command {
	c := &cobra.Command{
		Use:          "qbftsim",
		Short:        "Simulates a network of QBFT validators",
		SilenceUsage: true,
		RunE:         runFunc,
	}
	AddFlags(c.Flags())
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return Run(c.Context(), config)
}
