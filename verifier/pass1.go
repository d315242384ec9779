package verifier

import (
	"errors"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/repository"
)

// pass1Verifier checks that the class can be found and parsed, and that
// the class file declares the name it was looked up by.
type pass1Verifier struct {
	passVerifier
	owner *Verifier
}

func (p *pass1Verifier) verify() Result {
	return p.passVerifier.verify(func() Result {
		log.Debugf("pass 1 of %s", p.owner.className)
		result := p.do()
		if result.Status == StatusRejected {
			log.Infof("pass 1 rejected %s: %s", p.owner.className, result.Message)
		}
		return result
	})
}

func (p *pass1Verifier) do() Result {
	if err := p.check(); err != nil {
		return Rejected(err.Error())
	}
	return OK
}

func (p *pass1Verifier) check() error {
	name := p.owner.className
	cf, err := p.owner.load()
	switch {
	case errors.Is(err, repository.ErrClassNotFound):
		return loadingError("Class '%s' could not be found: %v", name, err)
	case errors.Is(err, classfile.ErrClassFormat):
		return &ConstraintError{Kind: KindLoading, Msg: "Parsing of class '" + name + "' did not succeed: " + err.Error(), Cause: err}
	case err != nil:
		return &ConstraintError{Kind: KindLoading, Msg: "Loading of class '" + name + "' failed: " + err.Error(), Cause: err}
	}
	if got := cf.ClassName(); got != name {
		return loadingError("Wrong name: the internal name of the .class file '%s' does not match the file's name '%s'.", got, name)
	}
	return nil
}
