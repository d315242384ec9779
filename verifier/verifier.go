// Package verifier statically verifies class files in passes: Pass 1
// checks that a class can be loaded, Pass 2 checks the static semantics of
// the class file structure, and Pass 3a checks the bytecode of each method
// without data flow analysis.
package verifier

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/justice/classfile"
)

var log = commonlog.GetLogger("justice.verifier")

// passVerifier memoizes the result of one pass together with the warnings
// it produced.
type passVerifier struct {
	done     bool
	result   Result
	messages []string
}

func (p *passVerifier) verify(do func() Result) Result {
	if !p.done {
		p.result = do()
		p.done = true
	}
	return p.result
}

func (p *passVerifier) addMessage(format string, args ...interface{}) {
	p.messages = append(p.messages, fmt.Sprintf(format, args...))
}

func (p *passVerifier) Messages() []string {
	return append([]string(nil), p.messages...)
}

// Verifier runs the passes for one class. A Verifier is not safe for
// concurrent use.
type Verifier struct {
	registry  *Registry
	className string

	pass1  *pass1Verifier
	pass2  *pass2Verifier
	pass3a map[int]*pass3aVerifier
}

func newVerifier(r *Registry, className string) *Verifier {
	v := &Verifier{registry: r, className: className}
	v.Flush()
	return v
}

// ClassName returns the internal name of the class being verified.
func (v *Verifier) ClassName() string {
	return v.className
}

func (v *Verifier) DoPass1() Result {
	return v.pass1.verify()
}

func (v *Verifier) DoPass2() Result {
	return v.pass2.verify()
}

// DoPass3a verifies the method at index method of the class's method table.
func (v *Verifier) DoPass3a(method int) Result {
	p, ok := v.pass3a[method]
	if !ok {
		p = &pass3aVerifier{owner: v, method: method}
		v.pass3a[method] = p
	}
	return p.verify()
}

// Flush forgets all results so the next Do call verifies again.
func (v *Verifier) Flush() {
	v.pass1 = &pass1Verifier{owner: v}
	v.pass2 = &pass2Verifier{owner: v}
	v.pass3a = make(map[int]*pass3aVerifier)
}

// Messages returns the warnings of every pass run so far, each prefixed
// with the pass that produced it.
func (v *Verifier) Messages() []string {
	var out []string
	for _, msg := range v.pass1.messages {
		out = append(out, "Pass 1: "+msg)
	}
	for _, msg := range v.pass2.messages {
		out = append(out, "Pass 2: "+msg)
	}

	methods := make([]int, 0, len(v.pass3a))
	for i := range v.pass3a {
		methods = append(methods, i)
	}
	sort.Ints(methods)
	for _, i := range methods {
		p := v.pass3a[i]
		if len(p.messages) == 0 {
			continue
		}
		name := v.methodName(i)
		for _, msg := range p.messages {
			out = append(out, fmt.Sprintf("Pass 3a, method %d ('%s'): %s", i, name, msg))
		}
	}
	return out
}

func (v *Verifier) methodName(i int) string {
	cf, err := v.load()
	if err != nil || i < 0 || i >= len(cf.Methods) {
		return "?"
	}
	return methodString(cf.ConstantPool, &cf.Methods[i])
}

func (v *Verifier) load() (*classfile.ClassFile, error) {
	return v.registry.repo.LoadClass(v.className)
}

// mustLoad loads the class after Pass 1 succeeded for it.
func (v *Verifier) mustLoad() *classfile.ClassFile {
	cf, err := v.load()
	if err != nil {
		panic(&AssertionViolated{Msg: "class " + v.className + " passed pass 1 but cannot be loaded", Cause: err})
	}
	return cf
}

func fieldString(cp classfile.ConstantPool, f *classfile.FieldInfo) string {
	return f.Name(cp) + ":" + f.Descriptor(cp)
}

func methodString(cp classfile.ConstantPool, m *classfile.MethodInfo) string {
	return m.Name(cp) + m.Descriptor(cp)
}

func attributeString(cp classfile.ConstantPool, a classfile.Attribute) string {
	return classfile.AttributeName(a, cp)
}

func constantString(cp classfile.ConstantPool, index uint16) string {
	entry := cp.Entry(index)
	if entry == nil {
		return fmt.Sprintf("<invalid constant %d>", index)
	}
	return entry.String()
}
