package metadata

// Condition is a named, reusable predicate over the actor, input and record
// scopes. It is satisfied when every scope it declares passes a flat
// validation run with error collection suppressed.
type Condition struct {
	Actor  CheckMap `json:"actor,omitempty"`
	Input  CheckMap `json:"input,omitempty"`
	Record CheckMap `json:"record,omitempty"`
}
