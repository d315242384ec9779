package verifier

import "fmt"

type Status int

const (
	StatusOK Status = iota
	StatusNotYet
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "VERIFIED_OK"
	case StatusNotYet:
		return "VERIFIED_NOTYET"
	case StatusRejected:
		return "VERIFIED_REJECTED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the verdict of one pass. Results compare with ==.
type Result struct {
	Status  Status `cbor:"1,keyasint" json:"status"`
	Message string `cbor:"2,keyasint" json:"message"`
}

var (
	OK     = Result{Status: StatusOK, Message: "All Tests OK."}
	NotYet = Result{Status: StatusNotYet, Message: "Not yet verified."}
)

// Rejected returns a rejecting result carrying msg.
func Rejected(msg string) Result {
	return Result{Status: StatusRejected, Message: msg}
}

func (r Result) IsOK() bool { return r.Status == StatusOK }

func (r Result) String() string {
	return r.Status.String() + ": " + r.Message
}
