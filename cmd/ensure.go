package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/itemflow/internal/cmds"
	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
)

// NewEnsureCmd builds the `ensure` subcommand: converge every managed
// item toward its goal state.
func NewEnsureCmd(streams genericiooptions.IOStreams) *cobra.Command {
	cfgFlags := genericclioptions.NewConfigFlags(true)
	fo := flowOptions{}
	var dryRun bool
	var checkStored bool

	cmd := &cobra.Command{
		Use:   "ensure -f FILE [-f FILE...]",
		Short: "Converge managed items toward their goal state",
		Long: `ensure discovers the current and goal state of every managed item,
diffs them, and applies only where the apply check says work is required.
Re-running after success is a no-op.
`,
		Example: `
  # Converge a single manifest set
  itemflow ensure -f deploy.yaml

  # Preview without changing anything
  itemflow ensure -f ./manifests -R --dry-run

  # Refuse to apply if the stored state no longer matches the cluster
  itemflow ensure -f app.yaml --check-stored
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := &runOptions{configFlags: cfgFlags, streams: streams, flowOpts: fo}
			c, err := run.buildCmdCtx(cmd.Context())
			if err != nil {
				return err
			}

			opts := cmds.EnsureOpts{}
			if checkStored {
				opts.Sync = cmds.SyncBoth
			}

			if dryRun {
				outcome := cmds.EnsureDry(cmd.Context(), c, opts)
				return reportEnsure(streams, outcome.Kind, outcome.Errors, outcome.ExecutionError)
			}
			outcome := cmds.Ensure(cmd.Context(), c, opts)
			return reportEnsure(streams, outcome.Kind, outcome.Errors, outcome.ExecutionError)
		},
	}

	addFlowFlags(cmd, cfgFlags, &fo)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Run every item's dry apply instead of the real one; persist nothing.")
	cmd.Flags().BoolVar(&checkStored, "check-stored", false,
		"Abort if stored current or goal states drifted from what is discovered now.")
	return cmd
}

func reportEnsure(streams genericiooptions.IOStreams, kind item.OutcomeKind, errs map[itemid.ID]error, execErr error) error {
	switch kind {
	case item.OutcomeComplete:
		fmt.Fprintln(streams.Out, "✓ success")
		return nil
	case item.OutcomeBlockInterrupted:
		fmt.Fprintln(streams.Out, "⚠ interrupted; in-flight items ran to completion")
		return nil
	case item.OutcomeItemError:
		return reportItemErrors(streams, errs)
	default:
		return execErr
	}
}
