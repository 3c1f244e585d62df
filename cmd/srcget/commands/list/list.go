package list

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/srcget/srcget/internal/cli"
)

// NewCommand creates the list command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE:    run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	rt, err := cli.NewRuntime()
	if err != nil {
		return err
	}

	descs, err := rt.DB.Installed()
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		pterm.Info.Println(MsgNoPackages)
		return nil
	}

	data := pterm.TableData{{"Package", "Version"}}
	for _, desc := range descs {
		data = append(data, []string{desc.Name, desc.Version})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
