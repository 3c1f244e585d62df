package remove

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/srcget/srcget/internal/cli"
	"github.com/srcget/srcget/pkg/builder"
)

// NewCommand creates the remove command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [packages...]",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE:    run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	rt, err := cli.NewRuntime()
	if err != nil {
		return err
	}

	for _, name := range args {
		if err := rt.Builder.Remove(name); err != nil {
			if builder.ErrNotInstalled(err) {
				pterm.Warning.Printfln(MsgNotInstalled, name)
				continue
			}
			return err
		}
		pterm.Success.Printfln(MsgRemoved, name)
	}
	return nil
}
