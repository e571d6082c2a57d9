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

// NewDiscoverCmd builds the `discover` subcommand: record every item's
// current and goal state without applying anything.
func NewDiscoverCmd(streams genericiooptions.IOStreams) *cobra.Command {
	cfgFlags := genericclioptions.NewConfigFlags(true)
	fo := flowOptions{}

	cmd := &cobra.Command{
		Use:   "discover -f FILE [-f FILE...]",
		Short: "Discover and record the current and goal state of managed items",
		Long: `discover reads the managed system, records each item's current and goal
state under the state directory, and prints them. The recorded states are
what 'ensure --check-stored' later verifies against.
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := &runOptions{configFlags: cfgFlags, streams: streams, flowOpts: fo}
			c, err := run.buildCmdCtx(cmd.Context())
			if err != nil {
				return err
			}

			outcome := cmds.StatesDiscoverCurrentAndGoal(cmd.Context(), c)
			switch outcome.Kind {
			case item.OutcomeComplete:
				outcome.Value.Current.Range(func(id itemid.ID, s item.Displayable) {
					fmt.Fprintf(streams.Out, "%s (current): %s\n", id, s)
				})
				outcome.Value.Goal.Range(func(id itemid.ID, s item.Displayable) {
					fmt.Fprintf(streams.Out, "%s (goal): %s\n", id, s)
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
