package neotype

// Instance is an application-level object bound to one graph node: a bag of
// attribute values plus the name of its owning type. ElementID is empty
// until the instance has been saved or loaded.
type Instance struct {
	TypeName  string
	ElementID string

	props map[string]any
}

// NewInstance creates an unsaved instance of the named type with the given
// attribute values.
func NewInstance(typeName string, props map[string]any) *Instance {
	if props == nil {
		props = make(map[string]any)
	}

	return &Instance{TypeName: typeName, props: props}
}

// Get returns the value of an attribute, if set.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.props[name]

	return v, ok
}

// Set assigns an attribute value.
func (i *Instance) Set(name string, value any) {
	if i.props == nil {
		i.props = make(map[string]any)
	}

	i.props[name] = value
}

// Props returns a copy of the instance's attribute values.
func (i *Instance) Props() map[string]any {
	out := make(map[string]any, len(i.props))
	for k, v := range i.props {
		out[k] = v
	}

	return out
}

// Relationship is an application-level object bound to one graph
// relationship. Start and End identify the endpoints; when the endpoint
// element IDs are already known (for instance because the endpoint nodes
// were loaded from the store) the instance references may be left nil.
type Relationship struct {
	Instance

	Start *Instance
	End   *Instance

	StartElementID string
	EndElementID   string
}

// NewRelationship creates an unsaved relationship instance of the named type
// between two endpoint instances.
func NewRelationship(typeName string, start, end *Instance, props map[string]any) *Relationship {
	rel := &Relationship{
		Instance: *NewInstance(typeName, props),
		Start:    start,
		End:      end,
	}

	if start != nil {
		rel.StartElementID = start.ElementID
	}

	if end != nil {
		rel.EndElementID = end.ElementID
	}

	return rel
}

// startID returns the element ID of the start node, preferring an explicit
// endpoint instance when present.
func (r *Relationship) startID() string {
	if r.Start != nil && r.Start.ElementID != "" {
		return r.Start.ElementID
	}

	return r.StartElementID
}

// endID returns the element ID of the end node.
func (r *Relationship) endID() string {
	if r.End != nil && r.End.ElementID != "" {
		return r.End.ElementID
	}

	return r.EndElementID
}
