package kubeitem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/restmapper"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/cli-utils/pkg/object"

	"github.com/hashmap-kz/itemflow/internal/progress"
	"github.com/hashmap-kz/itemflow/internal/resolve"
	"github.com/hashmap-kz/itemflow/internal/utils"
)

// planEntry is one manifest object resolved against the cluster's API
// surface: the desired state, the dynamic client scoped to it, and its
// metadata identifier.
type planEntry struct {
	obj *unstructured.Unstructured
	dr  dynamic.ResourceInterface
	id  object.ObjMetadata
}

// loadDocs reads every manifest Params names into decoded objects, in the
// sorted file order resolve.ResolveAllFiles returns and in document order
// within each file; the order of the ManifestPaths list itself is not kept.
func (i *Item) loadDocs(p Params) ([]*unstructured.Unstructured, error) {
	if p.Manifest != "" {
		return utils.ReadObjects(strings.NewReader(p.Manifest))
	}

	files, err := resolve.ResolveAllFiles(p.ManifestPaths, p.Recursive)
	if err != nil {
		return nil, err
	}
	var allDocs []*unstructured.Unstructured
	for _, file := range files {
		content, err := resolve.ReadFileContent(file)
		if err != nil {
			return nil, err
		}
		docs, err := utils.ReadObjects(strings.NewReader(string(content)))
		if err != nil {
			return nil, fmt.Errorf("kubeitem %s: parsing %s: %w", i.id, file, err)
		}
		allDocs = append(allDocs, docs...)
	}
	return allDocs, nil
}

// buildPlan resolves each decoded object's GVK to a GVR and scopes a
// dynamic.ResourceInterface to it, defaulting the namespace of namespaced
// objects that carry none.
func (i *Item) buildPlan(_ context.Context, p Params) ([]planEntry, error) {
	docs, err := i.loadDocs(p)
	if err != nil {
		return nil, err
	}

	plan := make([]planEntry, 0, len(docs))
	for _, u := range docs {
		gvk := u.GroupVersionKind()

		m, err := i.clients.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err != nil {
			// A stale discovery cache is the common cause; reset and
			// retry once before giving up.
			if dm, ok := i.clients.Mapper.(*restmapper.DeferredDiscoveryRESTMapper); ok {
				dm.Reset()
				m, err = i.clients.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
			}
			if err != nil {
				return nil, fmt.Errorf("kubeitem %s: could not map GVK %v: %w", i.id, gvk, err)
			}
		}

		var dr dynamic.ResourceInterface
		if m.Scope.Name() == meta.RESTScopeNameNamespace {
			if u.GetNamespace() == "" {
				ns := p.Namespace
				if ns == "" {
					ns = "default"
				}
				u.SetNamespace(ns)
			}
			dr = i.clients.Dynamic.Resource(m.Resource).Namespace(u.GetNamespace())
		} else {
			dr = i.clients.Dynamic.Resource(m.Resource)
		}

		id, err := object.RuntimeToObjMeta(u)
		if err != nil {
			return nil, err
		}
		plan = append(plan, planEntry{obj: u, dr: dr, id: id})
	}
	return plan, nil
}

// applyPlanned server-side-applies every plan entry in order, reporting a
// one-step progress delta per object. dryRun routes the patch through the
// apiserver's dry-run admission path instead of persisting.
func (i *Item) applyPlanned(ctx context.Context, p Params, plan []planEntry, px progress.Sender, dryRun bool) error {
	opts := metav1.PatchOptions{
		FieldManager: p.fieldManager(),
		Force:        ptr.To(true), // overwrite conflicts
	}
	if dryRun {
		opts.DryRun = []string{metav1.DryRunAll}
	}

	for _, entry := range plan {
		objJSON, err := json.Marshal(entry.obj)
		if err != nil {
			return err
		}
		if _, err := entry.dr.Patch(ctx, entry.obj.GetName(), types.ApplyPatchType, objJSON, opts); err != nil {
			return fmt.Errorf("kubeitem %s: applying %s: %w", i.id, entry.id, err)
		}
		px.Send(progress.Event{Update: progress.Update{
			ItemID: i.id.String(),
			Kind:   progress.UpdateDelta,
			Delta:  1,
		}})
	}
	return nil
}

// deletePlanned removes every plan entry, in reverse input order so
// dependents go before the things they depend on. Already-absent objects
// are tolerated.
func (i *Item) deletePlanned(ctx context.Context, plan []planEntry, px progress.Sender) error {
	for n := len(plan) - 1; n >= 0; n-- {
		entry := plan[n]
		err := entry.dr.Delete(ctx, entry.obj.GetName(), metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("kubeitem %s: deleting %s: %w", i.id, entry.id, err)
		}
		px.Send(progress.Event{Update: progress.Update{
			ItemID: i.id.String(),
			Kind:   progress.UpdateDelta,
			Delta:  1,
		}})
	}
	return nil
}

func getOptions() metav1.GetOptions {
	return metav1.GetOptions{}
}
