package process

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/srcget/srcget/internal/cli"
	"github.com/srcget/srcget/pkg/errors"
)

// NewCommand creates the process command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "process",
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

	report, procErr := rt.Queue.Process(cmd.Context())

	// The backlog changed even on a stall (failed entries are dropped),
	// so persist it before reporting.
	if err := rt.Queue.Flush(); err != nil {
		return err
	}

	for _, name := range report.Installed {
		pterm.Success.Printfln(MsgInstalled, name)
	}
	for _, failure := range report.Failures {
		pterm.Error.Printfln(MsgFailed, failure.Name, failure.Err)
	}

	if procErr != nil {
		if errors.IsErrorCode(procErr, errors.ErrDependencyStall) {
			pterm.Warning.Println(MsgStalled)
		}
		return procErr
	}

	if len(report.Installed) == 0 && len(report.Failures) == 0 {
		pterm.Info.Println(MsgEmpty)
	}
	return nil
}
