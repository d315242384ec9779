// Package repository locates and parses class files by internal name.
package repository

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/justice/classfile"
)

var log = commonlog.GetLogger("justice.repository")

var ErrClassNotFound = errors.New("class not found")

// Repository loads classes by internal name. Returned class files are
// shared and must not be modified by callers.
type Repository interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// Source finds the raw bytes of a class file.
type Source interface {
	Find(name string) ([]byte, error)
	String() string
}

// InternalName converts a binary name such as java.lang.String or a path
// such as java/lang/String.class into internal form.
func InternalName(name string) string {
	name = strings.TrimSuffix(name, ".class")
	return classfile.SourceToInternalName(name)
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// ClassPath searches its sources in order after asking its parent, and
// caches every class it parses.
type ClassPath struct {
	parent  Repository
	sources []Source

	mu    sync.Mutex
	cache map[string]*classfile.ClassFile
}

func NewClassPath(parent Repository, sources ...Source) *ClassPath {
	return &ClassPath{
		parent:  parent,
		sources: sources,
		cache:   make(map[string]*classfile.ClassFile),
	}
}

func (cp *ClassPath) Sources() []Source {
	return cp.sources
}

func (cp *ClassPath) LoadClass(name string) (*classfile.ClassFile, error) {
	name = InternalName(name)
	if cp.parent != nil {
		cf, err := cp.parent.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cf, ok := cp.cache[name]; ok {
		return cf, nil
	}

	for _, src := range cp.sources {
		data, err := src.Find(name)
		if errors.Is(err, ErrClassNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from %s: %w", name, src, err)
		}
		cf, err := classfile.ParseBytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s from %s: %w", name, src, err)
		}
		log.Debugf("loaded %s from %s", name, src)
		cp.cache[name] = cf
		return cf, nil
	}
	return nil, notFound(name)
}

// Flush empties the cache.
func (cp *ClassPath) Flush() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.cache = make(map[string]*classfile.ClassFile)
}

// Close releases sources that hold open files.
func (cp *ClassPath) Close() error {
	var errs []error
	for _, src := range cp.sources {
		if c, ok := src.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Memory holds parsed classes. Lookups that miss fall through to the
// parent, if any.
type Memory struct {
	parent Repository

	mu      sync.RWMutex
	classes map[string]*classfile.ClassFile
}

func NewMemory(parent Repository, classes ...*classfile.ClassFile) *Memory {
	m := &Memory{
		parent:  parent,
		classes: make(map[string]*classfile.ClassFile),
	}
	for _, cf := range classes {
		m.Add(cf)
	}
	return m
}

// Add stores cf under its own class name, replacing any previous entry.
func (m *Memory) Add(cf *classfile.ClassFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[cf.ClassName()] = cf
}

// AddBytes parses data and stores the result.
func (m *Memory) AddBytes(data []byte) (*classfile.ClassFile, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	m.Add(cf)
	return cf, nil
}

// Put stores cf under name regardless of the name cf declares.
func (m *Memory) Put(name string, cf *classfile.ClassFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[InternalName(name)] = cf
}

func (m *Memory) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.classes, InternalName(name))
}

func (m *Memory) LoadClass(name string) (*classfile.ClassFile, error) {
	name = InternalName(name)
	m.mu.RLock()
	cf, ok := m.classes[name]
	m.mu.RUnlock()
	if ok {
		return cf, nil
	}
	if m.parent != nil {
		return m.parent.LoadClass(name)
	}
	return nil, notFound(name)
}
