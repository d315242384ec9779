package verifier

import (
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/internal/classtest"
	"github.com/dhamidi/justice/repository"
)

func newTestRegistry(classes ...*classfile.ClassFile) (*Registry, *repository.Memory) {
	repo := repository.NewMemory(nil, classtest.Runtime()...)
	for _, cf := range classes {
		repo.Add(cf)
	}
	return NewRegistry(repo), repo
}

func wantRejected(t *testing.T, res Result, substr string) {
	t.Helper()
	if res.Status != StatusRejected {
		t.Fatalf("result = %v, want rejection containing %q", res, substr)
	}
	if !strings.Contains(res.Message, substr) {
		t.Errorf("message = %q, want it to contain %q", res.Message, substr)
	}
}

func wantOK(t *testing.T, res Result) {
	t.Helper()
	if !res.IsOK() {
		t.Fatalf("result = %v, want %v", res, OK)
	}
}

func hasMessage(messages []string, prefix, substr string) bool {
	for _, msg := range messages {
		if strings.HasPrefix(msg, prefix) && strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestPassOrdering(t *testing.T) {
	r, _ := newTestRegistry()
	v := r.Verifier("com/example/Missing")

	wantRejected(t, v.DoPass1(), "could not be found")
	if got := v.DoPass2(); got != NotYet {
		t.Errorf("DoPass2() = %v, want %v", got, NotYet)
	}
	if got := v.DoPass3a(0); got != NotYet {
		t.Errorf("DoPass3a(0) = %v, want %v", got, NotYet)
	}
}

func TestPassesSucceedOnWellFormedClass(t *testing.T) {
	b := classtest.New("com/example/Hello").Constructor()
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V",
		b.Code(0, 1, classtest.Asm(classfile.OpReturn)))
	r, _ := newTestRegistry(b.Build())
	v := r.Verifier("com.example.Hello")

	wantOK(t, v.DoPass1())
	wantOK(t, v.DoPass2())
	wantOK(t, v.DoPass3a(0))
	wantOK(t, v.DoPass3a(1))
	if msgs := v.Messages(); len(msgs) != 0 {
		t.Errorf("Messages() = %q, want none", msgs)
	}
}

func TestWrongName(t *testing.T) {
	r, repo := newTestRegistry()
	repo.Put("Alias", classtest.New("Real").Constructor().Build())

	wantRejected(t, r.Verifier("Alias").DoPass1(),
		"Wrong name: the internal name of the .class file 'Real' does not match the file's name 'Alias'.")
}

func TestResultsAreCachedUntilFlush(t *testing.T) {
	r, repo := newTestRegistry()
	v := r.Verifier("Later")

	first := v.DoPass1()
	if first.Status != StatusRejected {
		t.Fatalf("DoPass1() = %v, want rejection", first)
	}
	repo.Add(classtest.New("Later").Constructor().Build())
	if got := v.DoPass1(); got != first {
		t.Errorf("DoPass1() after adding the class = %v, want cached %v", got, first)
	}

	v.Flush()
	wantOK(t, v.DoPass1())
}

func TestMethodIndexOutOfRange(t *testing.T) {
	r, _ := newTestRegistry(classtest.New("T").Constructor().Build())
	v := r.Verifier("T")
	wantRejected(t, v.DoPass3a(7), "Method index 7 is out of range")
	wantRejected(t, v.DoPass3a(-1), "out of range")
}

func TestMessagesArePrefixedByPass(t *testing.T) {
	a := classtest.New("A").Constructor()
	a.Method(classfile.AccPrivate|classfile.AccFinal, "m", "()V", a.Code(0, 1, classtest.Asm(classfile.OpReturn)))

	b := classtest.New("B").Super("A").Constructor()
	b.Method(classfile.AccPublic, "m", "()V", b.Code(0, 1, classtest.Asm(classfile.OpReturn)))
	cls := b.Pool().AddClass("B")
	b.Method(classfile.AccPublic|classfile.AccStatic, "k", "()V",
		b.Code(1, 0, classtest.Asm(classfile.OpLdc, byte(cls), classfile.OpPop, classfile.OpReturn)))
	cf := b.Build()
	cf.MajorVersion = 48

	r, _ := newTestRegistry(a.Build(), cf)
	v := r.Verifier("B")
	wantOK(t, v.DoPass2())
	for i := range cf.Methods {
		wantOK(t, v.DoPass3a(i))
	}

	msgs := v.Messages()
	if !hasMessage(msgs, "Pass 2: ", "This is okay, as the original definition was private") {
		t.Errorf("Messages() = %q, want the private final warning", msgs)
	}
	if !hasMessage(msgs, "Pass 3a, method 2 ('k()V'): ", "this is only supported in JDK 1.5 and higher") {
		t.Errorf("Messages() = %q, want the LDC class warning", msgs)
	}
}

func TestRegistry(t *testing.T) {
	r, _ := newTestRegistry(classtest.New("T").Constructor().Build())

	t.Run("normalizes names", func(t *testing.T) {
		if r.Verifier("java.lang.Object") != r.Verifier("java/lang/Object") {
			t.Error("dotted and slashed names got different verifiers")
		}
	})

	t.Run("lists verifiers", func(t *testing.T) {
		r.Verifier("T")
		names := r.Verifiers()
		if len(names) != 2 || names[0] != "T" || names[1] != "java/lang/Object" {
			t.Errorf("Verifiers() = %v", names)
		}
	})

	t.Run("flush drops verifiers", func(t *testing.T) {
		before := r.Verifier("T")
		r.Flush()
		if r.Verifier("T") == before {
			t.Error("Verifier() returned the flushed instance")
		}
	})
}

func TestVerifyClass(t *testing.T) {
	b := classtest.New("T").Constructor()
	b.Method(classfile.AccPublic|classfile.AccStatic, "broken", "()V",
		b.Code(0, 0, classtest.Asm(classfile.OpNop)))
	cf := b.Build()

	t.Run("all passes", func(t *testing.T) {
		r, _ := newTestRegistry(cf)
		report := r.VerifyClass("T")
		wantOK(t, report.Pass1)
		wantOK(t, report.Pass2)
		if len(report.Methods) != 2 {
			t.Fatalf("len(Methods) = %d, want 2", len(report.Methods))
		}
		if m := report.Methods[0]; m.Name != classfile.ConstructorName || m.Descriptor != "()V" {
			t.Errorf("Methods[0] = %+v", m)
		}
		wantOK(t, report.Methods[0].Result)
		wantRejected(t, report.Methods[1].Result, "fall off the bottom")
		if report.Status() != StatusRejected {
			t.Errorf("Status() = %v, want %v", report.Status(), StatusRejected)
		}
		if !report.Failed(false) {
			t.Error("Failed(false) = false for a rejected class")
		}
	})

	t.Run("limited to pass 1", func(t *testing.T) {
		repo := repository.NewMemory(nil, classtest.Runtime()...)
		repo.Add(cf)
		r := NewRegistry(repo, WithMaxPass(Pass1))
		report := r.VerifyClass("T")
		wantOK(t, report.Pass1)
		if report.Pass2 != NotYet {
			t.Errorf("Pass2 = %v, want %v", report.Pass2, NotYet)
		}
		for _, m := range report.Methods {
			if m.Result != NotYet {
				t.Errorf("method %s = %v, want %v", m.Name, m.Result, NotYet)
			}
		}
		if report.Status() != StatusNotYet {
			t.Errorf("Status() = %v, want %v", report.Status(), StatusNotYet)
		}
	})

	t.Run("missing class", func(t *testing.T) {
		r, _ := newTestRegistry()
		report := r.VerifyClass("Nope")
		if report.Status() != StatusRejected || len(report.Methods) != 0 {
			t.Errorf("report = %+v", report)
		}
	})
}

func TestReportWarningsAsErrors(t *testing.T) {
	report := Report{Pass1: OK, Pass2: OK, Messages: []string{"Pass 2: something odd"}}
	if report.Failed(false) {
		t.Error("Failed(false) = true for a class with warnings only")
	}
	if !report.Failed(true) {
		t.Error("Failed(true) = false for a class with warnings")
	}
}

func TestParsePass(t *testing.T) {
	for _, p := range []Pass{Pass1, Pass2, Pass3a} {
		got, err := ParsePass(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePass(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePass("3b"); err == nil {
		t.Error("ParsePass(\"3b\") succeeded")
	}
}

func TestConstraintErrorKinds(t *testing.T) {
	err := classConstraint("bad %s", "thing")
	if !errors.Is(err, ErrClassConstraint) {
		t.Errorf("errors.Is(%v, ErrClassConstraint) = false", err)
	}
	if errors.Is(err, ErrStaticCodeInstruction) {
		t.Errorf("errors.Is(%v, ErrStaticCodeInstruction) = true", err)
	}
	if err.Error() != "bad thing" {
		t.Errorf("Error() = %q", err.Error())
	}

	var ce *ConstraintError
	if !errors.As(instructionConstraint("x"), &ce) || ce.Kind != KindStaticCodeInstruction {
		t.Errorf("errors.As gave %+v", ce)
	}
}

func TestAssertionViolated(t *testing.T) {
	defer func() {
		a, ok := recover().(*AssertionViolated)
		if !ok {
			t.Fatalf("recovered %T, want *AssertionViolated", a)
		}
		if !strings.HasPrefix(a.Error(), "INTERNAL ERROR: ") {
			t.Errorf("Error() = %q", a.Error())
		}
	}()
	newLocalVariables(1).add(3, "x", 0, 1, "int")
}
