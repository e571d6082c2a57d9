package paramspec

// Breadcrumb is one (field name, type name) pair recorded while resolving a
// nested FieldWise spec, so a resolution error can point at exactly which
// field of which struct went missing instead of just naming the outermost
// params type.
type Breadcrumb struct {
	FieldName string
	TypeName  string
}

// Ctx carries the resolution mode and the breadcrumb trail accumulated so
// far through a (possibly nested) Resolve/TryResolve call.
type Ctx struct {
	Mode        ResolutionMode
	Breadcrumbs []Breadcrumb
}

// NewCtx starts a fresh resolution context for the given mode.
func NewCtx(mode ResolutionMode) Ctx {
	return Ctx{Mode: mode}
}

// Push returns a copy of ctx with one more breadcrumb appended, used when
// descending into a FieldWise spec's field.
func (c Ctx) Push(fieldName, typeName string) Ctx {
	next := make([]Breadcrumb, len(c.Breadcrumbs), len(c.Breadcrumbs)+1)
	copy(next, c.Breadcrumbs)
	next = append(next, Breadcrumb{FieldName: fieldName, TypeName: typeName})
	return Ctx{Mode: c.Mode, Breadcrumbs: next}
}
