package recipe

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srcget/srcget/internal/cli"
)

// NewCommand creates the recipe command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "recipe [package]",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE:    run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	rt, err := cli.NewRuntime()
	if err != nil {
		return err
	}

	rendered, err := rt.Resolver.Describe(args[0])
	if err != nil {
		return err
	}

	fmt.Print(rendered)
	return nil
}
