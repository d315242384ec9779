package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/config"
	"github.com/dhamidi/justice/internal/classtest"
	"github.com/dhamidi/justice/verifier"
)

func writeClass(t *testing.T, root string, cf *classfile.ClassFile) string {
	t.Helper()
	data, err := cf.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, filepath.FromSlash(cf.ClassName())+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiagnostics(t *testing.T) {
	report := &verifier.Report{
		ClassName: "T",
		Pass1:     verifier.OK,
		Pass2:     verifier.OK,
		Methods: []verifier.MethodResult{
			{Index: 0, Name: "m", Descriptor: "()V", Result: verifier.Rejected("boom")},
		},
		Messages: []string{"Pass 2: odd"},
	}

	got := Diagnostics(report)
	if len(got) != 2 {
		t.Fatalf("len(Diagnostics()) = %d, want 2", len(got))
	}
	if *got[0].Severity != protocol.DiagnosticSeverityError || got[0].Message != "Pass 3a, method 'm()V': boom" {
		t.Errorf("Diagnostics()[0] = %+v", got[0])
	}
	if *got[1].Severity != protocol.DiagnosticSeverityWarning || got[1].Message != "Pass 2: odd" {
		t.Errorf("Diagnostics()[1] = %+v", got[1])
	}
}

func TestDiagnose(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, classtest.Object())

	t.Run("verified", func(t *testing.T) {
		path := writeClass(t, root, classtest.New("com/example/Good").Constructor().Build())
		if got := Diagnose(config.Default(root), path); len(got) != 0 {
			t.Errorf("Diagnose() = %+v, want none", got)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		b := classtest.New("com/example/Bad").Constructor()
		b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", b.Code(0, 0, classtest.Asm(classfile.OpNop)))
		path := writeClass(t, root, b.Build())

		got := Diagnose(config.Default(root), path)
		if len(got) != 1 || !strings.Contains(got[0].Message, "fall off the bottom") {
			t.Errorf("Diagnose() = %+v", got)
		}
	})

	t.Run("not a class file", func(t *testing.T) {
		path := filepath.Join(root, "Junk.class")
		if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
			t.Fatal(err)
		}
		got := Diagnose(config.Default(root), path)
		if len(got) != 1 || *got[0].Severity != protocol.DiagnosticSeverityError {
			t.Errorf("Diagnose() = %+v", got)
		}
	})
}

func TestURIToPath(t *testing.T) {
	got, err := uriToPath("file:///tmp/a%20b/T.class")
	if err != nil || got != "/tmp/a b/T.class" {
		t.Errorf("uriToPath() = %q, %v", got, err)
	}
}
