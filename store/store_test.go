package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dhamidi/justice/verifier"
)

func sampleReport() *verifier.Report {
	return &verifier.Report{
		ClassName: "com/example/Hello",
		Pass1:     verifier.OK,
		Pass2:     verifier.OK,
		Methods: []verifier.MethodResult{
			{Index: 0, Name: "<init>", Descriptor: "()V", Result: verifier.OK},
			{Index: 1, Name: "broken", Descriptor: "()V", Result: verifier.Rejected("Execution must not fall off the bottom of the code array.")},
		},
		Messages: []string{"Pass 2: a warning"},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "verdicts.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	digest := Digest([]byte{0xca, 0xfe, 0xba, 0xbe})
	want := sampleReport()

	if err := s.Put(digest, verifier.Pass3a, want); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := s.Get(digest, verifier.Pass3a)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ClassName != want.ClassName {
		t.Errorf("ClassName = %q, want %q", got.ClassName, want.ClassName)
	}
	if got.Status() != verifier.StatusRejected {
		t.Errorf("Status() = %v, want %v", got.Status(), verifier.StatusRejected)
	}
	if len(got.Methods) != 2 || got.Methods[1].Result != want.Methods[1].Result {
		t.Errorf("Methods = %+v, want %+v", got.Methods, want.Methods)
	}
	if len(got.Messages) != 1 || got.Messages[0] != want.Messages[0] {
		t.Errorf("Messages = %q, want %q", got.Messages, want.Messages)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	digest := Digest([]byte("x"))
	if err := s.Put(digest, verifier.Pass1, sampleReport()); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	if _, err := s.Get(digest, verifier.Pass3a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() for another pass error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(Digest([]byte("y")), verifier.Pass1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() for another digest error = %v, want ErrNotFound", err)
	}
}

func TestListAndClear(t *testing.T) {
	s := openTemp(t)
	for _, data := range []string{"a", "b"} {
		r := sampleReport()
		r.ClassName = data
		if err := s.Put(Digest([]byte(data)), verifier.Pass2, r); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 || entries[0].Class != "a" || entries[1].Pass != "2" {
		t.Errorf("List() = %+v", entries)
	}

	n, err := s.Clear()
	if err != nil || n != 2 {
		t.Errorf("Clear() = %d, %v, want 2", n, err)
	}
	if entries, _ := s.List(); len(entries) != 0 {
		t.Errorf("List() after Clear() = %+v", entries)
	}
}

func TestCanonicalEncoding(t *testing.T) {
	a, err := MarshalReport(sampleReport())
	if err != nil {
		t.Fatalf("MarshalReport() error: %v", err)
	}
	b, _ := MarshalReport(sampleReport())
	if string(a) != string(b) {
		t.Error("encoding the same report twice gave different bytes")
	}
}

func TestDigest(t *testing.T) {
	got := Digest([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Digest(\"abc\") = %s, want %s", got, want)
	}
}
