package paramspec

import (
	"reflect"

	"github.com/hashmap-kz/itemflow/internal/resource"
)

// Spec[P] is a declarative description of how to produce a P from the
// Resource store. It is a tagged union in the source; idiomatic Go favors
// a small interface plus one concrete struct per variant over a single
// giant switch, the same shape cli-utils' kstatus Compute dispatches by
// discovered GroupKind.
type Spec[P any] interface {
	// resolve produces a P, erroring if any required value is absent.
	resolve(ctx Ctx, r resource.Reader) (P, error)
	// tryResolve produces a P, returning ok=false (no error) when a
	// required value is simply not yet present.
	tryResolve(ctx Ctx, r resource.Reader) (P, bool, error)
}

// Resolve runs a Spec[P] to completion, erroring on any missing input.
func Resolve[P any](spec Spec[P], mode ResolutionMode, r resource.Reader) (P, error) {
	return spec.resolve(NewCtx(mode), r)
}

// TryResolve runs a Spec[P], distinguishing "not yet available" (ok=false,
// err=nil) from a hard error.
func TryResolve[P any](spec Spec[P], mode ResolutionMode, r resource.Reader) (P, bool, error) {
	return spec.tryResolve(NewCtx(mode), r)
}

// typeName returns a short, stable name for error messages without
// depending on the exact reflect.Type formatting.
func typeName[T any]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

// --- Value ---

type valueSpec[P any] struct{ value P }

// Value returns a Spec that always resolves to the given literal.
func Value[P any](v P) Spec[P] { return valueSpec[P]{value: v} }

func (s valueSpec[P]) resolve(Ctx, resource.Reader) (P, error) { return s.value, nil }
func (s valueSpec[P]) tryResolve(Ctx, resource.Reader) (P, bool, error) {
	return s.value, true, nil
}
func (s valueSpec[P]) SpecTypeName() string { return typeName[P]() }
func (s valueSpec[P]) IsMappingFn() bool    { return false }

// --- InMemory ---

type inMemorySpec[P any] struct{}

// InMemory returns a Spec that fetches a P already present in the Resource
// store (inserted directly, or by a previous item's apply).
func InMemory[P any]() Spec[P] { return inMemorySpec[P]{} }

func (s inMemorySpec[P]) resolve(ctx Ctx, r resource.Reader) (P, error) {
	ref, err := resource.Borrow[P](r)
	if err != nil {
		var zero P
		if rfe, ok := err.(*resource.ResourceFetchError); ok && resource.IsBorrowConflict(rfe) {
			return zero, &ResolveError{Ctx: ctx, FromTypeName: typeName[P](), BorrowConflict: true}
		}
		return zero, &ResolveError{Ctx: ctx, FromTypeName: typeName[P]()}
	}
	defer ref.Release()
	return ref.Get(), nil
}

func (s inMemorySpec[P]) tryResolve(ctx Ctx, r resource.Reader) (P, bool, error) {
	ref, err := resource.Borrow[P](r)
	if err != nil {
		var zero P
		if rfe, ok := err.(*resource.ResourceFetchError); ok && resource.IsBorrowConflict(rfe) {
			return zero, false, &ResolveError{Ctx: ctx, FromTypeName: typeName[P](), BorrowConflict: true}
		}
		return zero, false, nil
	}
	defer ref.Release()
	return ref.Get(), true, nil
}

func (s inMemorySpec[P]) SpecTypeName() string { return typeName[P]() }
func (s inMemorySpec[P]) IsMappingFn() bool    { return false }

// --- MappingFn ---

type mappingFnSpec[P any] struct {
	fn   func(r resource.Reader) (P, bool, error)
	name string
}

// MappingFn returns a Spec that builds a P by reading other resources from
// the store and applying fn. fn returns ok=false (not error) when one of
// its own dependencies is absent, so TryResolve can distinguish that from
// a hard error — mirroring the source's "if it returns None, fail with
// FromMap" rule for Resolve, while letting TryResolve propagate the
// distinction.
func MappingFn[P any](name string, fn func(r resource.Reader) (P, bool, error)) Spec[P] {
	return mappingFnSpec[P]{fn: fn, name: name}
}

func (s mappingFnSpec[P]) resolve(ctx Ctx, r resource.Reader) (P, error) {
	v, ok, err := s.fn(r)
	if err != nil {
		var zero P
		return zero, err
	}
	if !ok {
		var zero P
		return zero, &ResolveError{Ctx: ctx, FromTypeName: s.name}
	}
	return v, nil
}

func (s mappingFnSpec[P]) tryResolve(_ Ctx, r resource.Reader) (P, bool, error) {
	return s.fn(r)
}

func (s mappingFnSpec[P]) SpecTypeName() string { return typeName[P]() }
func (s mappingFnSpec[P]) IsMappingFn() bool    { return true }

// --- FieldWise ---

// fieldSpec is one field of a FieldWise spec: a name (for breadcrumbs) and
// a resolver that produces the field's value as an `any`, to be assembled
// by the FieldWise spec's Assemble function. Go has no way to express
// "recursively resolve each field of a generic P" without reflection over
// struct tags, so FieldWise here is explicit: the item author lists each
// field's sub-spec and provides the assembler, rather than the framework
// inferring fields from P's shape.
type fieldSpec struct {
	name    string
	resolve func(ctx Ctx, r resource.Reader) (any, error)
	try     func(ctx Ctx, r resource.Reader) (any, bool, error)
}

// Field wraps a field's own Spec[F] into a fieldSpec usable by FieldWise.
func Field[F any](name string, spec Spec[F]) fieldSpec {
	return fieldSpec{
		name: name,
		resolve: func(ctx Ctx, r resource.Reader) (any, error) {
			v, err := spec.resolve(ctx.Push(name, typeName[F]()), r)
			return v, err
		},
		try: func(ctx Ctx, r resource.Reader) (any, bool, error) {
			return spec.tryResolve(ctx.Push(name, typeName[F]()), r)
		},
	}
}

type fieldWiseSpec[P any] struct {
	fields   []fieldSpec
	assemble func(values []any) P
}

// FieldWise returns a Spec that resolves each field independently via its
// own Spec, then assembles P from the results.
func FieldWise[P any](assemble func(values []any) P, fields ...fieldSpec) Spec[P] {
	return fieldWiseSpec[P]{fields: fields, assemble: assemble}
}

func (s fieldWiseSpec[P]) resolve(ctx Ctx, r resource.Reader) (P, error) {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		v, err := f.resolve(ctx, r)
		if err != nil {
			var zero P
			return zero, err
		}
		values[i] = v
	}
	return s.assemble(values), nil
}

func (s fieldWiseSpec[P]) tryResolve(ctx Ctx, r resource.Reader) (P, bool, error) {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		v, ok, err := f.try(ctx, r)
		if err != nil || !ok {
			var zero P
			return zero, false, err
		}
		values[i] = v
	}
	return s.assemble(values), true, nil
}

func (s fieldWiseSpec[P]) SpecTypeName() string { return typeName[P]() }
func (s fieldWiseSpec[P]) IsMappingFn() bool    { return false }

// --- Stored ---

// StoredSpecsProvider looks up a previously-persisted Spec[P] for an item,
// by its params type name, to satisfy a Stored sentinel spec at resolve
// time. Concretely backed by storage.TypedRegistry in the cmds layer.
type StoredSpecsProvider interface {
	StoredSpecFor(typeName string) (any, bool)
}

type storedSpec[P any] struct {
	provider StoredSpecsProvider
}

// Stored returns the sentinel spec meaning "fetch from previously
// persisted spec". provider may be nil, in which case resolving always
// fails with UsedStoredSentinel — the correct behavior the first time a
// flow runs, before any params_specs.<ext> file exists.
func Stored[P any](provider StoredSpecsProvider) Spec[P] {
	return storedSpec[P]{provider: provider}
}

func (s storedSpec[P]) resolve(ctx Ctx, r resource.Reader) (P, error) {
	var zero P
	if s.provider == nil {
		return zero, &ResolveError{Ctx: ctx, FromTypeName: typeName[P](), UsedStoredSentinel: true}
	}
	stored, ok := s.provider.StoredSpecFor(typeName[P]())
	if !ok {
		return zero, &ResolveError{Ctx: ctx, FromTypeName: typeName[P](), UsedStoredSentinel: true}
	}
	spec, ok := stored.(Spec[P])
	if !ok {
		return zero, &ResolveError{Ctx: ctx, FromTypeName: typeName[P](), UsedStoredSentinel: true}
	}
	return spec.resolve(ctx, r)
}

func (s storedSpec[P]) tryResolve(ctx Ctx, r resource.Reader) (P, bool, error) {
	var zero P
	if s.provider == nil {
		return zero, false, nil
	}
	stored, ok := s.provider.StoredSpecFor(typeName[P]())
	if !ok {
		return zero, false, nil
	}
	spec, ok := stored.(Spec[P])
	if !ok {
		return zero, false, nil
	}
	return spec.tryResolve(ctx, r)
}

func (s storedSpec[P]) SpecTypeName() string { return typeName[P]() }
func (s storedSpec[P]) IsMappingFn() bool    { return false }
