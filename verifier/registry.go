package verifier

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/repository"
)

// Pass names how far VerifyClass goes.
type Pass int

const (
	Pass1 Pass = iota + 1
	Pass2
	Pass3a
)

func (p Pass) String() string {
	switch p {
	case Pass1:
		return "1"
	case Pass2:
		return "2"
	case Pass3a:
		return "3a"
	}
	return fmt.Sprintf("Pass(%d)", int(p))
}

// ParsePass accepts "1", "2" and "3a".
func ParsePass(s string) (Pass, error) {
	switch s {
	case "1":
		return Pass1, nil
	case "2":
		return Pass2, nil
	case "3a", "3":
		return Pass3a, nil
	}
	return 0, fmt.Errorf("unknown pass %q: want 1, 2 or 3a", s)
}

type Option func(*Registry)

// WithMaxPass stops VerifyClass after pass p. Later passes are reported
// as not yet verified.
func WithMaxPass(p Pass) Option {
	return func(r *Registry) {
		r.maxPass = p
	}
}

// Registry holds one Verifier per class name and the repository they load
// classes from. Verifying a class also drives the Verifiers of the classes
// it references, so a Registry must be used from one goroutine at a time.
// Verify in parallel with one Registry per goroutine.
type Registry struct {
	repo    repository.Repository
	maxPass Pass

	mu        sync.Mutex
	verifiers map[string]*Verifier
}

func NewRegistry(repo repository.Repository, opts ...Option) *Registry {
	r := &Registry{
		repo:      repo,
		maxPass:   Pass3a,
		verifiers: make(map[string]*Verifier),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Repository() repository.Repository {
	return r.repo
}

func (r *Registry) MaxPass() Pass {
	return r.maxPass
}

// Verifier returns the Verifier for name, creating it on first use. Binary
// names such as java.lang.String are accepted.
func (r *Registry) Verifier(name string) *Verifier {
	name = repository.InternalName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verifiers[name]
	if !ok {
		v = newVerifier(r, name)
		r.verifiers[name] = v
	}
	return v
}

// Verifiers returns the names of all classes a Verifier was created for.
func (r *Registry) Verifiers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flush drops every Verifier and with it all cached results.
func (r *Registry) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers = make(map[string]*Verifier)
}

// mustLoad loads a class that already passed Pass 1.
func (r *Registry) mustLoad(name string) *classfile.ClassFile {
	return r.Verifier(name).mustLoad()
}

// VerifyClass runs every pass up to the registry's maximum pass on name
// and all of its methods.
func (r *Registry) VerifyClass(name string) Report {
	v := r.Verifier(name)
	report := Report{
		ClassName: v.ClassName(),
		Pass1:     v.DoPass1(),
		Pass2:     NotYet,
	}
	if r.maxPass >= Pass2 {
		report.Pass2 = v.DoPass2()
	}

	if cf, err := v.load(); err == nil && report.Pass1.IsOK() {
		for i := range cf.Methods {
			m := &cf.Methods[i]
			result := NotYet
			if r.maxPass >= Pass3a {
				result = v.DoPass3a(i)
			}
			report.Methods = append(report.Methods, MethodResult{
				Index:      i,
				Name:       m.Name(cf.ConstantPool),
				Descriptor: m.Descriptor(cf.ConstantPool),
				Result:     result,
			})
		}
	}
	report.Messages = v.Messages()
	log.Debugf("verified %s: %s", report.ClassName, report.Status())
	return report
}
