// Package kubeitem provides an Item that converges a set of Kubernetes
// manifests: current state is discovered by reading the live objects and
// computing their kstatus, goal state is every object existing and
// Current, apply performs server-side apply and waits for the aggregate
// status to settle.
package kubeitem

import (
	"context"
	"fmt"
	"sort"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	kstatus "sigs.k8s.io/cli-utils/pkg/kstatus/status"

	"github.com/hashmap-kz/itemflow/internal/item"
	"github.com/hashmap-kz/itemflow/internal/itemid"
	"github.com/hashmap-kz/itemflow/internal/itemrt"
	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resource"

	"k8s.io/client-go/dynamic"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// Clients bundles the Kubernetes clients the item needs. Built once (by
// the CLI, from connection flags) and shared through the resource store
// via Setup, so several kubeitem instances in one flow reuse the same
// discovery cache and connections.
type Clients struct {
	Dynamic dynamic.Interface
	Mapper  meta.RESTMapper
	Reader  ctrlclient.Reader
}

// Params names the manifests to manage and how to apply them.
type Params struct {
	// ManifestPaths are files, directories, glob patterns, or URLs.
	ManifestPaths []string `json:"manifestPaths,omitempty"`
	// Manifest is an inline YAML/JSON alternative to ManifestPaths.
	Manifest string `json:"manifest,omitempty"`
	// Recursive descends into subdirectories of ManifestPaths entries.
	Recursive bool `json:"recursive,omitempty"`
	// Namespace is the fallback namespace for namespaced objects whose
	// manifests carry none.
	Namespace string `json:"namespace,omitempty"`
	// FieldManager is the server-side apply field manager; defaults to
	// "itemflow".
	FieldManager string `json:"fieldManager,omitempty"`
	// WaitTimeout bounds the post-apply status wait; defaults to 30s.
	WaitTimeout time.Duration `json:"waitTimeout,omitempty"`
}

func (p Params) fieldManager() string {
	if p.FieldManager == "" {
		return "itemflow"
	}
	return p.FieldManager
}

func (p Params) waitTimeout() time.Duration {
	if p.WaitTimeout <= 0 {
		return 30 * time.Second
	}
	return p.WaitTimeout
}

// ObjectState is one managed object's observed state.
type ObjectState struct {
	// ID is the object's metadata identifier (group/kind/namespace/name).
	ID     string `json:"id"`
	Exists bool   `json:"exists"`
	// Status is the object's kstatus (Current, InProgress, NotFound, …).
	Status string `json:"status"`
}

// State is the whole manifest set's observed state, ordered by object id.
type State struct {
	Objects []ObjectState `json:"objects"`
}

func (s State) String() string {
	total := len(s.Objects)
	current := 0
	for _, o := range s.Objects {
		if o.Exists && o.Status == kstatus.CurrentStatus.String() {
			current++
		}
	}
	return fmt.Sprintf("%d/%d objects current", current, total)
}

// Diff partitions the goal's objects by what apply would do to them.
type Diff struct {
	ToCreate   []string `json:"toCreate,omitempty"`
	ToConverge []string `json:"toConverge,omitempty"`
	InSync     []string `json:"inSync,omitempty"`
}

func (d Diff) String() string {
	return fmt.Sprintf("%d to create, %d to converge, %d in sync", len(d.ToCreate), len(d.ToConverge), len(d.InSync))
}

func (d Diff) changes() int {
	return len(d.ToCreate) + len(d.ToConverge)
}

// Item converges Kubernetes manifests.
type Item struct {
	id      itemid.ID
	clients *Clients
}

// New wraps a Kubernetes manifest item for registration in a flow.
func New(id itemid.ID, clients *Clients) itemrt.RT {
	return itemrt.Wrap[Params, State, Diff](&Item{id: id, clients: clients})
}

func (i *Item) ID() itemid.ID { return i.id }

// Setup shares the client bundle through the resource store, so sibling
// items (or mapping-fn params) can reach the same connection.
func (i *Item) Setup(r *resource.Store[resource.Empty]) error {
	if i.clients == nil {
		return fmt.Errorf("kubeitem %s: clients are required", i.id)
	}
	resource.Insert(r, i.clients)
	return nil
}

// StateClean is every object absent: the state Clean converges toward.
func (i *Item) StateClean(p Params, _ resource.Reader) (State, error) {
	plan, err := i.buildPlan(context.Background(), p)
	if err != nil {
		return State{}, err
	}
	s := State{Objects: make([]ObjectState, 0, len(plan))}
	for _, entry := range plan {
		s.Objects = append(s.Objects, ObjectState{
			ID:     entry.id.String(),
			Exists: false,
			Status: kstatus.NotFoundStatus.String(),
		})
	}
	sortObjects(s.Objects)
	return s, nil
}

func (i *Item) TryStateCurrent(ctx context.Context, _ item.FnCtx, p Params, _ resource.Reader) (*State, error) {
	plan, err := i.buildPlan(ctx, p)
	if err != nil {
		return nil, err
	}
	s := State{Objects: make([]ObjectState, 0, len(plan))}
	for _, entry := range plan {
		live, err := entry.dr.Get(ctx, entry.obj.GetName(), getOptions())
		switch {
		case apierrors.IsNotFound(err):
			s.Objects = append(s.Objects, ObjectState{ID: entry.id.String(), Exists: false, Status: kstatus.NotFoundStatus.String()})
		case err != nil:
			return nil, fmt.Errorf("kubeitem %s: reading %s: %w", i.id, entry.id, err)
		default:
			st, err := kstatus.Compute(live)
			if err != nil {
				return nil, fmt.Errorf("kubeitem %s: computing status of %s: %w", i.id, entry.id, err)
			}
			s.Objects = append(s.Objects, ObjectState{ID: entry.id.String(), Exists: true, Status: st.Status.String()})
		}
	}
	sortObjects(s.Objects)
	return &s, nil
}

func (i *Item) StateCurrent(ctx context.Context, fc item.FnCtx, p Params, r resource.Reader) (State, error) {
	s, err := i.TryStateCurrent(ctx, fc, p, r)
	if err != nil {
		return State{}, err
	}
	return *s, nil
}

// TryStateGoal is every object existing with Current status — computed
// from the manifests alone, no cluster round-trip.
func (i *Item) TryStateGoal(ctx context.Context, _ item.FnCtx, p Params, _ resource.Reader) (*State, error) {
	plan, err := i.buildPlan(ctx, p)
	if err != nil {
		return nil, err
	}
	s := State{Objects: make([]ObjectState, 0, len(plan))}
	for _, entry := range plan {
		s.Objects = append(s.Objects, ObjectState{
			ID:     entry.id.String(),
			Exists: true,
			Status: kstatus.CurrentStatus.String(),
		})
	}
	sortObjects(s.Objects)
	return &s, nil
}

func (i *Item) StateGoal(ctx context.Context, fc item.FnCtx, p Params, r resource.Reader) (State, error) {
	s, err := i.TryStateGoal(ctx, fc, p, r)
	if err != nil {
		return State{}, err
	}
	return *s, nil
}

func (i *Item) StateDiff(_ Params, _ resource.Reader, a, b State) (Diff, bool, error) {
	current := make(map[string]ObjectState, len(a.Objects))
	for _, o := range a.Objects {
		current[o.ID] = o
	}
	var d Diff
	for _, want := range b.Objects {
		have, ok := current[want.ID]
		switch {
		case !ok || !have.Exists:
			if !want.Exists {
				d.InSync = append(d.InSync, want.ID)
				continue
			}
			d.ToCreate = append(d.ToCreate, want.ID)
		case have.Exists != want.Exists, have.Status != want.Status:
			d.ToConverge = append(d.ToConverge, want.ID)
		default:
			d.InSync = append(d.InSync, want.ID)
		}
	}
	return d, true, nil
}

func (i *Item) ApplyCheck(_ Params, _ resource.Reader, _, _ State, diff Diff) (item.ApplyCheck, error) {
	if diff.changes() == 0 {
		return item.ExecNotRequired(), nil
	}
	return item.ExecRequiredWithLimit(progress.Limit{
		Kind: progress.LimitSteps,
		N:    uint64(diff.changes()),
	}), nil
}

// Apply converges toward the target: when the target wants the objects
// present, it server-side-applies every one and waits for the aggregate
// status to reach Current (bounded by the wait timeout); when the target
// wants them absent (a clean), it deletes them instead. Either way the
// resulting state is re-discovered and returned.
func (i *Item) Apply(ctx context.Context, fc item.FnCtx, p Params, r resource.Reader, _, target State, _ Diff) (State, error) {
	plan, err := i.buildPlan(ctx, p)
	if err != nil {
		return State{}, err
	}

	if wantsAbsent(target) {
		if err := i.deletePlanned(ctx, plan, fc.Progress); err != nil {
			return State{}, err
		}
		return i.StateCurrent(ctx, fc, p, r)
	}

	if err := i.applyPlanned(ctx, p, plan, fc.Progress, false); err != nil {
		return State{}, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, p.waitTimeout())
	defer cancel()
	if err := i.waitStatus(waitCtx, plan, fc); err != nil {
		return State{}, err
	}
	return i.StateCurrent(ctx, fc, p, r)
}

// ApplyDry routes the same patches through the apiserver's dry-run
// admission path, so the objects are validated without being persisted,
// and returns the target state. A dry clean performs no server calls.
func (i *Item) ApplyDry(ctx context.Context, fc item.FnCtx, p Params, _ resource.Reader, _, target State, _ Diff) (State, error) {
	if wantsAbsent(target) {
		return target, nil
	}
	plan, err := i.buildPlan(ctx, p)
	if err != nil {
		return State{}, err
	}
	if err := i.applyPlanned(ctx, p, plan, fc.Progress, true); err != nil {
		return State{}, err
	}
	return target, nil
}

// wantsAbsent reports whether the target state asks for every object to
// not exist — the clean target.
func wantsAbsent(target State) bool {
	for _, o := range target.Objects {
		if o.Exists {
			return false
		}
	}
	return true
}

// StateEq compares observed object sets; states discovered at different
// times are equal when every object agrees on existence and status.
func (i *Item) StateEq(stored, discovered State) bool {
	if len(stored.Objects) != len(discovered.Objects) {
		return false
	}
	for n, o := range stored.Objects {
		if discovered.Objects[n] != o {
			return false
		}
	}
	return true
}

func sortObjects(objects []ObjectState) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })
}
