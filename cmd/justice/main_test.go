package main

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/config"
	"github.com/dhamidi/justice/internal/classtest"
	"github.com/dhamidi/justice/repository"
	"github.com/dhamidi/justice/store"
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

func newChecker(t *testing.T, root string, cache *store.Store) *checker {
	cfg := config.Default(root)
	return &checker{
		extra:   []string{root},
		maxPass: verifier.Pass3a,
		cache:   cache,
		open: func(extra ...string) (*repository.ClassPath, error) {
			return cfg.Repository(extra...)
		},
	}
}

func TestCheckerVerifiesFilesAndNames(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, classtest.Object())
	good := writeClass(t, root, classtest.New("com/example/Good").Constructor().Build())

	c := newChecker(t, root, nil)
	for _, arg := range []string{good, "com.example.Good"} {
		reports, err := c.verify(arg)
		if err != nil {
			t.Fatalf("verify(%q) error: %v", arg, err)
		}
		if len(reports) != 1 || reports[0].Status() != verifier.StatusOK {
			t.Errorf("verify(%q) = %+v", arg, reports)
		}
	}

	reports, err := c.verify("com.example.Missing")
	if err != nil {
		t.Fatalf("verify(missing) error: %v", err)
	}
	if len(reports) != 1 || reports[0].Status() != verifier.StatusRejected {
		t.Errorf("verify(missing) = %+v", reports)
	}
}

func TestCheckerVerifiesArchive(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, classtest.Object())
	data, err := classtest.New("com/example/Good").Constructor().Build().Bytes()
	if err != nil {
		t.Fatal(err)
	}

	jar := filepath.Join(t.TempDir(), "app.jar")
	f, err := os.Create(jar)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("com/example/Good.class")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c := newChecker(t, root, nil)
	reports, err := c.verify(jar)
	if err != nil {
		t.Fatalf("verify(%q) error: %v", jar, err)
	}
	if len(reports) != 1 || reports[0].ClassName != "com/example/Good" || reports[0].Status() != verifier.StatusOK {
		t.Errorf("verify(%q) = %+v", jar, reports)
	}

	if _, err := c.verifyArchive(root); err == nil || !strings.Contains(err.Error(), "is not an archive") {
		t.Errorf("verifyArchive(directory) error = %v, want not an archive", err)
	}
}

func TestCheckerRejectsMalformedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Junk.class")
	if err := os.WriteFile(path, []byte{0xca, 0xfe}, 0o644); err != nil {
		t.Fatal(err)
	}
	reports, err := newChecker(t, root, nil).verify(path)
	if err != nil {
		t.Fatalf("verify() error: %v", err)
	}
	if len(reports) != 1 || reports[0].Pass1.Status != verifier.StatusRejected {
		t.Errorf("verify() = %+v", reports)
	}
}

func TestCheckerUsesCache(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, classtest.Object())
	path := writeClass(t, root, classtest.New("T").Constructor().Build())

	cache, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	defer cache.Close()

	c := newChecker(t, root, cache)
	if _, err := c.verify(path); err != nil {
		t.Fatalf("verify() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	cached, err := cache.Get(store.Digest(data), verifier.Pass3a)
	if err != nil {
		t.Fatalf("cache.Get() error: %v", err)
	}
	if cached.ClassName != "T" || cached.Status() != verifier.StatusOK {
		t.Errorf("cached report = %+v", cached)
	}

	cached.Messages = []string{"from the cache"}
	if err := cache.Put(store.Digest(data), verifier.Pass3a, cached); err != nil {
		t.Fatal(err)
	}
	reports, err := c.verify(path)
	if err != nil {
		t.Fatalf("verify() error: %v", err)
	}
	if len(reports[0].Messages) != 1 || reports[0].Messages[0] != "from the cache" {
		t.Errorf("second verify() did not use the cache: %+v", reports[0])
	}
}

func TestRenderer(t *testing.T) {
	var sb strings.Builder
	r := newRenderer(&sb)
	r.report(&verifier.Report{
		ClassName: "T",
		Pass1:     verifier.OK,
		Pass2:     verifier.Rejected("bad"),
		Messages:  []string{"Pass 1: odd"},
	})

	want := `T: VERIFIED_REJECTED
  Pass 1: VERIFIED_OK All Tests OK.
  Pass 2: VERIFIED_REJECTED bad
  warning: Pass 1: odd
`
	if got := sb.String(); got != want {
		t.Errorf("report output = %q, want %q", got, want)
	}
}

func TestRoundtrip(t *testing.T) {
	b := classtest.New("T").Constructor()
	b.Method(classfile.AccPublic|classfile.AccStatic, "m", "()V", b.Code(0, 0, classtest.Asm(classfile.OpReturn)))
	data := b.Bytes()

	written, err := roundtrip(data)
	if err != nil {
		t.Fatalf("roundtrip() error: %v", err)
	}
	if firstDifference(data, written) != len(data) || len(written) != len(data) {
		t.Errorf("roundtrip() differs at offset %d", firstDifference(data, written))
	}
	if _, err := roundtrip(data[:10]); err == nil {
		t.Error("roundtrip() of a truncated class succeeded")
	}
}

func TestFirstDifference(t *testing.T) {
	if got := firstDifference([]byte{1, 2, 3}, []byte{1, 9, 3}); got != 1 {
		t.Errorf("firstDifference() = %d, want 1", got)
	}
	if got := firstDifference([]byte{1, 2}, []byte{1, 2, 3}); got != 2 {
		t.Errorf("firstDifference() = %d, want 2", got)
	}
}
