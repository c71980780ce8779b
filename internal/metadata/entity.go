package metadata

// EntityValidations is the full validation spec for one entity: per-scope
// property rules plus the named conditions those rules reference. Specs are
// immutable once loaded; the engine never mutates them.
type EntityValidations struct {
	Entity string `json:"entity,omitempty"`

	// Table is the backing table consulted by the unique check.
	Table string `json:"table,omitempty"`

	Actor  map[string][]Rule `json:"actor,omitempty"`
	Input  map[string][]Rule `json:"input,omitempty"`
	Record map[string][]Rule `json:"record,omitempty"`

	Conditions map[string]*Condition `json:"conditions,omitempty"`
}

// Condition returns the named condition, or nil.
func (ev *EntityValidations) Condition(name string) *Condition {
	if ev == nil {
		return nil
	}
	return ev.Conditions[name]
}
