package queue

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/srcget/srcget/internal/cli"
)

// NewCommand creates the queue command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "queue",
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

	pending := rt.Queue.Pending()
	if len(pending) == 0 {
		pterm.Info.Println(MsgEmpty)
		return nil
	}

	items := make([]pterm.BulletListItem, 0, len(pending))
	for _, name := range pending {
		items = append(items, pterm.BulletListItem{Level: 0, Text: name})
	}
	return pterm.DefaultBulletList.WithItems(items).Render()
}
