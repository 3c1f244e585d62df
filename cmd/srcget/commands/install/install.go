package install

import (
	"sync"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/srcget/srcget/internal/cli"
	"github.com/srcget/srcget/pkg/builder"
	"github.com/srcget/srcget/pkg/errors"
	"github.com/srcget/srcget/pkg/recipe"
)

// NewCommand creates the install command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "install [packages...]",
		Short:   MsgShort,
		Long:    MsgLong,
		Example: MsgExample,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE:    run,
	}

	cmd.Flags().Bool("stable", false, MsgFlagStable)
	cmd.Flags().Bool("upgrade", false, MsgFlagUpgrade)
	cmd.Flags().Bool("defer", false, MsgFlagDefer)

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	stable, _ := cmd.Flags().GetBool("stable")
	upgrade, _ := cmd.Flags().GetBool("upgrade")
	deferred, _ := cmd.Flags().GetBool("defer")

	rt, err := cli.NewRuntime()
	if err != nil {
		return err
	}

	opts := builder.Options{
		Stable:  stable || rt.Config.Stable,
		Upgrade: upgrade,
		Defer:   deferred,
	}

	if deferred {
		for _, name := range args {
			rt.Queue.Defer(recipe.ByName(name), opts)
			pterm.Info.Printfln(MsgDeferred, name)
		}
		return rt.Queue.Flush()
	}

	if len(args) == 1 {
		return installOne(cmd, rt, args[0], opts)
	}

	// Independent packages build concurrently, bounded by the
	// configured parallelism.
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, rt.Config.Parallel)

	for _, name := range args {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report := <-rt.Builder.InstallAsync(cmd.Context(), recipe.ByName(name), opts)

			mu.Lock()
			defer mu.Unlock()
			if report.Err != nil {
				pterm.Error.Printfln(MsgFailed, name, report.Err)
				failed++
				return
			}
			printResult(name, report.Result)
		}(name)
	}
	wg.Wait()

	if failed > 0 {
		return errors.Newf(errors.ErrInstallFailed, "%d of %d packages failed to install", failed, len(args))
	}
	return nil
}

func installOne(cmd *cobra.Command, rt *cli.Runtime, name string, opts builder.Options) error {
	res, err := rt.Builder.Install(cmd.Context(), recipe.ByName(name), opts)
	if err != nil {
		return err
	}
	printResult(name, res)
	return nil
}

func printResult(name string, res *builder.Result) {
	if res.Installed {
		pterm.Success.Printfln(MsgInstalled, name, res.Descriptor.Version)
		return
	}
	pterm.Info.Printfln(MsgUpToDate, name, res.Descriptor.Version)
}
