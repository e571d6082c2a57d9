package cmd

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericiooptions"
)

func NewRootCmd(streams genericiooptions.IOStreams) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "itemflow",
		Short:         "Discover, diff, and converge a graph of managed items toward a goal or clean state.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})
	rootCmd.AddCommand(NewEnsureCmd(streams))
	rootCmd.AddCommand(NewCleanCmd(streams))
	rootCmd.AddCommand(NewDiffCmd(streams))
	rootCmd.AddCommand(NewDiscoverCmd(streams))
	return rootCmd
}
