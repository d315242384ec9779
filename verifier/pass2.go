package verifier

import (
	"github.com/dhamidi/justice/classfile"
)

// pass2Verifier checks the static semantics of the class file: the
// constant pool, fields, methods and attributes, the superclass chain and
// the final-method rule. Bytecode is left to Pass 3a.
type pass2Verifier struct {
	passVerifier
	owner *Verifier

	// localVariables is indexed by method and filled from the
	// LocalVariableTable attributes while the constant pool is checked.
	localVariables []*localVariables
}

func (p *pass2Verifier) verify() Result {
	return p.passVerifier.verify(func() Result {
		log.Debugf("pass 2 of %s", p.owner.className)
		result := p.do()
		if result.Status == StatusRejected {
			log.Infof("pass 2 rejected %s: %s", p.owner.className, result.Message)
		}
		return result
	})
}

func (p *pass2Verifier) do() Result {
	if !p.owner.DoPass1().IsOK() {
		return NotYet
	}
	cf := p.owner.mustLoad()
	p.localVariables = make([]*localVariables, len(cf.Methods))

	checks := []func(*classfile.ClassFile) error{
		p.checkConstantPool,
		p.checkMemberRefs,
		p.checkSuperclasses,
		p.checkFinalMethods,
	}
	for _, check := range checks {
		if err := check(cf); err != nil {
			return Rejected(err.Error())
		}
	}
	return OK
}

// checkSuperclasses walks the superclass chain up to java/lang/Object.
// Every ancestor must load and must not be final.
func (p *pass2Verifier) checkSuperclasses(cf *classfile.ClassFile) error {
	if cf.IsModule() {
		return nil
	}
	registry := p.owner.registry
	seen := make(map[string]bool)
	for {
		if cf.SuperClass == 0 {
			if name := cf.ClassName(); name != classfile.ObjectClassName {
				return classConstraint("Superclass of '%s' missing but not %s itself!", name, classfile.ObjectClassName)
			}
			return nil
		}

		super := cf.SuperClassName()
		if seen[super] {
			return classConstraint("Circular superclass hierarchy detected.")
		}
		seen[super] = true

		if !registry.Verifier(super).DoPass1().IsOK() {
			return classConstraint("Could not load in ancestor class '%s'.", super)
		}
		cf = registry.mustLoad(super)
		if cf.AccessFlags.IsFinal() {
			return classConstraint("Ancestor class '%s' has the FINAL access modifier and must therefore not be subclassed.", super)
		}
	}
}

// checkFinalMethods walks from the class up to java/lang/Object, recording
// for every name and descriptor the nearest class declaring it. A final
// ancestor method with a recorded name and descriptor is overridden.
func (p *pass2Verifier) checkFinalMethods(cf *classfile.ClassFile) error {
	if cf.IsModule() {
		return nil
	}
	registry := p.owner.registry
	declaring := make(map[string]string)
	seen := make(map[string]bool)
	for {
		cp := cf.ConstantPool
		name := cf.ClassName()
		seen[name] = true
		for i := range cf.Methods {
			m := &cf.Methods[i]
			key := methodString(cp, m)
			if sub, ok := declaring[key]; ok && m.IsFinal() {
				if !m.IsPrivate() {
					return classConstraint("Method '%s' in class '%s' overrides the final (not-overridable) definition in class '%s'.", key, sub, name)
				}
				p.addMessage("Method '%s' in class '%s' overrides the final (not-overridable) definition in class '%s'. "+
					"This is okay, as the original definition was private; however this constraint leverage was introduced by JLS 8.4.6 (not vmspec2) and the behavior of the Sun verifiers.",
					key, sub, name)
			} else if !m.IsStatic() {
				declaring[key] = name
			}
		}

		if cf.SuperClass == 0 || seen[cf.SuperClassName()] {
			return nil
		}
		cf = registry.mustLoad(cf.SuperClassName())
	}
}
