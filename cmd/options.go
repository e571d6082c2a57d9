package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/cli-runtime/pkg/genericiooptions"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/restmapper"
	"k8s.io/klog/v2"

	"k8s.io/apimachinery/pkg/runtime"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/hashmap-kz/itemflow/internal/cmds"
	"github.com/hashmap-kz/itemflow/internal/flow"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/paramspec"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/storage"
	"github.com/hashmap-kz/itemflow/items/kubeitem"
)

// manifestsItemID is the single item the CLI manages: the whole manifest
// set the user pointed -f at.
var manifestsItemID = itemid.MustNew("manifests")

// flowOptions groups the user-visible flags shared by every subcommand.
type flowOptions struct {
	filenames []string
	recursive bool
	timeout   time.Duration
	profile   string
	stateDir  string
}

// runOptions wires together everything a subcommand needs to build a
// command context: connection flags, IO streams, and the parsed flags
// above — the same shape kubectl-style commands use so callers can build
// it the way they would for a builtin.
type runOptions struct {
	configFlags *genericclioptions.ConfigFlags
	streams     genericiooptions.IOStreams
	flowOpts    flowOptions
}

// addFlowFlags registers the shared flags, keeping the important ones at
// the top and pushing the kubectl connection flags into their own section
// so --help stays short and readable.
func addFlowFlags(cmd *cobra.Command, cfgFlags *genericclioptions.ConfigFlags, fo *flowOptions) {
	f := cmd.Flags()
	f.SortFlags = false // preserve insertion order

	f.StringSliceVarP(&fo.filenames, "filename", "f", nil,
		"Manifest files, glob patterns, or directories to manage.")
	_ = cmd.MarkFlagRequired("filename")

	f.BoolVarP(&fo.recursive, "recursive", "R", false,
		"Recurse into directories specified with --filename.")
	f.DurationVar(&fo.timeout, "timeout", 30*time.Second,
		"Wait timeout for resources to reach the desired state.")
	f.StringVar(&fo.profile, "profile", "default",
		"Profile (environment) the flow's state is recorded under.")
	f.StringVar(&fo.stateDir, "state-dir", ".itemflow",
		"Directory the flow's stored states and params specs live in.")

	// Kubernetes connection flags (own section)
	conn := pflag.NewFlagSet("Kubernetes connection flags", pflag.ContinueOnError)
	cfgFlags.AddFlags(conn)
	cmd.Flags().AddFlagSet(conn)
}

// buildClients initializes the Kubernetes client bundle from the
// connection flags.
func (o *runOptions) buildClients() (*kubeitem.Clients, error) {
	cfg, err := o.configFlags.ToRESTConfig()
	if err != nil {
		return nil, err
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	disc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, err
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(disc))

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	crClient, err := ctrlclient.New(cfg, ctrlclient.Options{Scheme: scheme})
	if err != nil {
		return nil, err
	}
	return &kubeitem.Clients{Dynamic: dyn, Mapper: mapper, Reader: crClient}, nil
}

// buildCmdCtx assembles the single-item flow and its command context:
// one kubeitem managing the -f manifest set, state recorded under
// <state-dir>/<profile>/manifests/, interruption wired to Ctrl-C.
func (o *runOptions) buildCmdCtx(ctx context.Context) (*cmds.CmdCtx, error) {
	clients, err := o.buildClients()
	if err != nil {
		return nil, err
	}

	flowID, err := itemid.NewFlow("manifests")
	if err != nil {
		return nil, err
	}
	fb := flow.NewBuilder(flowID)
	if err := fb.AddItem(kubeitem.New(manifestsItemID, clients)); err != nil {
		return nil, err
	}
	fl, err := fb.Build()
	if err != nil {
		return nil, err
	}

	profile, err := itemid.NewProfile(o.flowOpts.profile)
	if err != nil {
		return nil, err
	}

	namespace := ""
	if o.configFlags.Namespace != nil {
		namespace = *o.configFlags.Namespace
	}
	params := kubeitem.Params{
		ManifestPaths: o.flowOpts.filenames,
		Recursive:     o.flowOpts.recursive,
		Namespace:     namespace,
		WaitTimeout:   o.flowOpts.timeout,
	}

	return cmds.NewCmdCtx(ctx, cmds.CmdCtxOpts{
		Flow:    fl,
		Profile: profile,
		ParamsSpecs: paramspec.Specs{
			manifestsItemID: paramspec.Value(params),
		},
		Storage:       storage.NewFS(o.flowOpts.stateDir),
		Interrupt:     interruptOnSignal(),
		Logger:        klog.NewKlogr(),
		ProgressDrain: progress.NewConsoleWrite(o.streams.Out).Drain,
	})
}

// interruptOnSignal converts the first Ctrl-C into a cooperative
// interrupt: in-flight items run to completion, no new ones launch. A
// second Ctrl-C falls back to the default hard exit.
func interruptOnSignal() <-chan struct{} {
	ch := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		close(ch)
		signal.Stop(sigCh)
	}()
	return ch
}

// reportItemErrors prints per-item errors in a stable order and returns a
// summary error for the CLI to exit on.
func reportItemErrors(streams genericiooptions.IOStreams, errs map[itemid.ID]error) error {
	for _, id := range sortedIDs(errs) {
		fmt.Fprintf(streams.ErrOut, "✗ %s: %v\n", id, errs[id])
	}
	return fmt.Errorf("%d item(s) failed", len(errs))
}

func sortedIDs(errs map[itemid.ID]error) []itemid.ID {
	ids := make([]itemid.ID, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
