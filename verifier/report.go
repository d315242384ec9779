package verifier

// MethodResult is the Pass 3a verdict for one method.
type MethodResult struct {
	Index      int    `cbor:"1,keyasint" json:"index"`
	Name       string `cbor:"2,keyasint" json:"name"`
	Descriptor string `cbor:"3,keyasint" json:"descriptor"`
	Result     Result `cbor:"4,keyasint" json:"result"`
}

// Report collects the results of verifying one class.
type Report struct {
	ClassName string         `cbor:"1,keyasint" json:"class"`
	Pass1     Result         `cbor:"2,keyasint" json:"pass1"`
	Pass2     Result         `cbor:"3,keyasint" json:"pass2"`
	Methods   []MethodResult `cbor:"4,keyasint,omitempty" json:"methods,omitempty"`
	Messages  []string       `cbor:"5,keyasint,omitempty" json:"messages,omitempty"`
}

// Results lists the pass verdicts in the order they were computed.
func (r *Report) Results() []Result {
	out := []Result{r.Pass1, r.Pass2}
	for _, m := range r.Methods {
		out = append(out, m.Result)
	}
	return out
}

// Status is StatusRejected if any pass rejected the class, StatusNotYet if
// Pass 1 did not succeed or a pass was skipped, and StatusOK otherwise.
func (r *Report) Status() Status {
	status := StatusOK
	for _, res := range r.Results() {
		switch res.Status {
		case StatusRejected:
			return StatusRejected
		case StatusNotYet:
			status = StatusNotYet
		}
	}
	return status
}

// Failed reports whether the class should count as failing verification.
// Warnings only count when warningsAsErrors is set.
func (r *Report) Failed(warningsAsErrors bool) bool {
	if r.Status() == StatusRejected {
		return true
	}
	return warningsAsErrors && len(r.Messages) > 0
}
