// Package submission assembles and ships the terminal intake payload.
package submission

// Decision is the qualification gate's verdict.
type Decision struct {
	Qualified bool   `json:"qualified"`
	Reason    string `json:"reason,omitempty"`
}

// Evaluate is the qualification gate: a pure function of the full response
// set. The current product accepts every completed intake, but the seam is
// kept so real exclusion criteria (e.g. contraindicated conditions) can be
// added without touching the resolver or the store.
func Evaluate(responses map[string]interface{}) Decision {
	return Decision{Qualified: true}
}
