package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/itemflow/internal/cmds"
)

// NewCleanCmd builds the `clean` subcommand: tear every managed item down
// to its clean state, in reverse dependency order.
func NewCleanCmd(streams genericiooptions.IOStreams) *cobra.Command {
	cfgFlags := genericclioptions.NewConfigFlags(true)
	fo := flowOptions{}
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean -f FILE [-f FILE...]",
		Short: "Tear managed items down to their clean state",
		Long: `clean converges every managed item toward "does not exist", walking the
item graph in the reverse of the order ensure builds it up. Items already
clean are skipped. Re-running after success is a no-op.
`,
		Example: `
  # Remove everything a manifest set manages
  itemflow clean -f deploy.yaml

  # Preview what clean would remove
  itemflow clean -f ./manifests -R --dry-run
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := &runOptions{configFlags: cfgFlags, streams: streams, flowOpts: fo}
			c, err := run.buildCmdCtx(cmd.Context())
			if err != nil {
				return err
			}

			if dryRun {
				outcome := cmds.CleanDry(cmd.Context(), c, cmds.CleanOpts{})
				return reportEnsure(streams, outcome.Kind, outcome.Errors, outcome.ExecutionError)
			}
			outcome := cmds.Clean(cmd.Context(), c, cmds.CleanOpts{})
			return reportEnsure(streams, outcome.Kind, outcome.Errors, outcome.ExecutionError)
		},
	}

	addFlowFlags(cmd, cfgFlags, &fo)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Run every item's dry apply instead of the real one; persist nothing.")
	return cmd
}
