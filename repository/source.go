package repository

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir finds class files below a directory, one file per class.
type Dir struct {
	Root string
}

func (d Dir) Find(name string) ([]byte, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(name)+".class")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	return data, err
}

func (d Dir) String() string { return d.Root }

// ClassRoot returns the class path directory that holds the class file
// at path, or "" if path does not end in className's own file name.
func ClassRoot(path, className string) string {
	suffix := string(filepath.Separator) + filepath.FromSlash(className) + ".class"
	clean := filepath.Clean(path)
	if !strings.HasSuffix(clean, suffix) {
		return ""
	}
	return strings.TrimSuffix(clean, suffix)
}

var jmodMagic = []byte{'J', 'M', 1, 0}

// Archive finds class files in a jar or jmod.
type Archive struct {
	path   string
	prefix string
	file   *os.File
	index  map[string]*zip.File
}

// OpenJar opens a jar or zip archive.
func OpenJar(path string) (*Archive, error) {
	return openArchive(path, 0, "")
}

// OpenJmod opens a JDK jmod file: a four byte header followed by a zip
// whose classes live under classes/.
func OpenJmod(path string) (*Archive, error) {
	return openArchive(path, int64(len(jmodMagic)), "classes/")
}

// Open picks OpenJmod, OpenJar or Dir from the path.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jmod":
		return OpenJmod(path)
	case ".jar", ".zip":
		return OpenJar(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class path entry: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("class path entry %s is neither a directory nor an archive", path)
	}
	return Dir{Root: path}, nil
}

func openArchive(path string, offset int64, prefix string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	if offset > 0 {
		header := make([]byte, offset)
		if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, jmodMagic) {
			f.Close()
			return nil, fmt.Errorf("%s is not a jmod file", path)
		}
	}
	zr, err := zip.NewReader(io.NewSectionReader(f, offset, info.Size()-offset), info.Size()-offset)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}

	a := &Archive{path: path, prefix: prefix, file: f, index: make(map[string]*zip.File)}
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || filepath.Ext(entry.Name) != ".class" {
			continue
		}
		name, ok := strings.CutPrefix(entry.Name, prefix)
		if !ok {
			continue
		}
		a.index[strings.TrimSuffix(name, ".class")] = entry
	}
	log.Debugf("indexed %d classes in %s", len(a.index), path)
	return a, nil
}

func (a *Archive) Find(name string) ([]byte, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, notFound(name)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Names lists the internal names of all classes in the archive.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.index))
	for name := range a.index {
		names = append(names, name)
	}
	return names
}

func (a *Archive) String() string { return a.path }

func (a *Archive) Close() error {
	return a.file.Close()
}
