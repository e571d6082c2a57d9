// Package printer formats aligned per-object status rows for wait-loop
// progress messages.
package printer

import (
	"fmt"

	"sigs.k8s.io/cli-utils/pkg/object"
)

// Len holds the column widths computed over a set of tracked objects, so
// successive status rows line up.
type Len struct {
	KindNameMaxLen  int
	NamespaceMaxLen int
}

// CalcLen computes column widths across all tracked resources up front;
// rows printed while waiting then stay stable as statuses change.
func CalcLen(resources []object.ObjMetadata) *Len {
	k := 0
	n := 0
	for _, r := range resources {
		kn := fmt.Sprintf("%s/%s", r.GroupKind.Kind, r.Name)
		if len(kn) > k {
			k = len(kn)
		}
		ns := namespaceOrClusterScoped(r.Namespace)
		if len(ns) > n {
			n = len(ns)
		}
	}
	return &Len{
		KindNameMaxLen:  k,
		NamespaceMaxLen: n,
	}
}

// FormatRow renders one "kind/name namespace status" row padded to the
// precomputed widths.
func (l *Len) FormatRow(id object.ObjMetadata, status string) string {
	kn := fmt.Sprintf("%s/%s", id.GroupKind.Kind, id.Name)
	ns := namespaceOrClusterScoped(id.Namespace)
	return fmt.Sprintf("%-*s  %-*s  %s", l.KindNameMaxLen, kn, l.NamespaceMaxLen, ns, status)
}

func namespaceOrClusterScoped(ns string) string {
	if ns == "" {
		return "(cluster)"
	}
	return ns
}
