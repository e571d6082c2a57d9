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

// NewDiffCmd builds the `diff` subcommand: show what ensure would change
// without changing anything.
func NewDiffCmd(streams genericiooptions.IOStreams) *cobra.Command {
	cfgFlags := genericclioptions.NewConfigFlags(true)
	fo := flowOptions{}

	cmd := &cobra.Command{
		Use:   "diff -f FILE [-f FILE...]",
		Short: "Diff the current state of managed items against their goal state",
		Example: `
  # What would ensure do?
  itemflow diff -f deploy.yaml
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := &runOptions{configFlags: cfgFlags, streams: streams, flowOpts: fo}
			c, err := run.buildCmdCtx(cmd.Context())
			if err != nil {
				return err
			}

			outcome := cmds.DiffCurrentAndGoal(cmd.Context(), c)
			switch outcome.Kind {
			case item.OutcomeComplete:
				outcome.Value.Range(func(id itemid.ID, diff item.Displayable) {
					fmt.Fprintf(streams.Out, "%s: %s\n", id, diff)
				})
				return nil
			case item.OutcomeItemError:
				return reportItemErrors(streams, outcome.Errors)
			case item.OutcomeBlockInterrupted:
				fmt.Fprintln(streams.Out, "⚠ interrupted")
				return nil
			default:
				return outcome.ExecutionError
			}
		},
	}

	addFlowFlags(cmd, cfgFlags, &fo)
	return cmd
}
