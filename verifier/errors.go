package verifier

import "fmt"

// Kind categorizes a constraint violation.
type Kind string

const (
	KindClassConstraint               Kind = "class constraint"
	KindStaticCodeInstruction         Kind = "static code instruction constraint"
	KindStaticCodeInstructionOperand  Kind = "static code instruction operand constraint"
	KindLocalVariableInfoInconsistent Kind = "local variable info inconsistent"
	KindLoading                       Kind = "loading"
)

// ConstraintError is a violated verification constraint. It never escapes
// a pass: the pass turns it into a rejecting Result.
type ConstraintError struct {
	Kind  Kind
	Msg   string
	Cause error
}

// Sentinels for errors.Is; only the kind is compared.
var (
	ErrClassConstraint               = &ConstraintError{Kind: KindClassConstraint}
	ErrStaticCodeInstruction         = &ConstraintError{Kind: KindStaticCodeInstruction}
	ErrStaticCodeInstructionOperand  = &ConstraintError{Kind: KindStaticCodeInstructionOperand}
	ErrLocalVariableInfoInconsistent = &ConstraintError{Kind: KindLocalVariableInfoInconsistent}
	ErrLoading                       = &ConstraintError{Kind: KindLoading}
)

func (e *ConstraintError) Error() string {
	return e.Msg
}

func (e *ConstraintError) Unwrap() error {
	return e.Cause
}

func (e *ConstraintError) Is(target error) bool {
	t, ok := target.(*ConstraintError)
	return ok && t.Kind == e.Kind
}

func classConstraint(format string, args ...interface{}) error {
	return &ConstraintError{Kind: KindClassConstraint, Msg: fmt.Sprintf(format, args...)}
}

func loadingError(format string, args ...interface{}) error {
	return &ConstraintError{Kind: KindLoading, Msg: fmt.Sprintf(format, args...)}
}

func instructionConstraint(format string, args ...interface{}) error {
	return &ConstraintError{Kind: KindStaticCodeInstruction, Msg: fmt.Sprintf(format, args...)}
}

// AssertionViolated is panicked when the verifier finds its own invariants
// broken. It is not a verdict about the class under test.
type AssertionViolated struct {
	Msg   string
	Cause error
}

func (a *AssertionViolated) Error() string {
	if a.Cause != nil {
		return "INTERNAL ERROR: " + a.Msg + ": " + a.Cause.Error()
	}
	return "INTERNAL ERROR: " + a.Msg
}

func (a *AssertionViolated) Unwrap() error {
	return a.Cause
}

func assertionViolated(format string, args ...interface{}) {
	panic(&AssertionViolated{Msg: fmt.Sprintf(format, args...)})
}
