package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/repository"
	"github.com/dhamidi/justice/store"
	"github.com/dhamidi/justice/verifier"
)

var log = commonlog.GetLogger("justice.cmd")

func newVerifyCmd(opts *options) *cobra.Command {
	var (
		passes           string
		warningsAsErrors bool
		noCache          bool
		jsonOutput       bool
	)

	cmd := &cobra.Command{
		Use:   "verify <class-file|jar|class-name>...",
		Short: "Run the static verification passes on classes",
		Long: `Verify runs Pass 1, Pass 2 and Pass 3a on each argument. Arguments
ending in .class are read from disk, jars and jmods are verified class by
class, and anything else is looked up by name on the class path.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config
			if cmd.Flags().Changed("passes") {
				cfg.Verify.Passes = passes
			}
			if cmd.Flags().Changed("warnings-as-errors") {
				cfg.Verify.WarningsAsErrors = warningsAsErrors
			}
			maxPass, err := cfg.MaxPass()
			if err != nil {
				return err
			}

			var cache *store.Store
			if cfg.CacheEnabled() && !noCache {
				cache, err = store.Open(cfg.CachePath())
				if err != nil {
					return err
				}
				defer cache.Close()
			}

			c := &checker{
				extra:   opts.classPath,
				maxPass: maxPass,
				cache:   cache,
				open: func(extra ...string) (*repository.ClassPath, error) {
					return cfg.Repository(extra...)
				},
			}
			out := newRenderer(cmd.OutOrStdout())
			failed := 0
			for _, arg := range args {
				reports, err := c.verify(arg)
				if err != nil {
					return err
				}
				for _, report := range reports {
					if jsonOutput {
						if err := json.NewEncoder(cmd.OutOrStdout()).Encode(report); err != nil {
							return fmt.Errorf("encode json: %w", err)
						}
					} else {
						out.report(report)
					}
					if report.Failed(cfg.Verify.WarningsAsErrors) {
						failed++
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d class(es) failed verification", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&passes, "passes", "p", "3a", "last pass to run (1, 2 or 3a)")
	cmd.Flags().BoolVarP(&warningsAsErrors, "warnings-as-errors", "W", false, "fail classes that only have warnings")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not read or write the verdict cache")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON report per class")

	return cmd
}

// checker verifies classes named on the command line, consulting the
// verdict cache first.
type checker struct {
	extra   []string
	maxPass verifier.Pass
	cache   *store.Store
	open    func(extra ...string) (*repository.ClassPath, error)
}

func (c *checker) verify(arg string) ([]*verifier.Report, error) {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".class":
		return c.verifyFile(arg)
	case ".jar", ".jmod", ".zip":
		return c.verifyArchive(arg)
	}
	return c.verifyName(arg)
}

func (c *checker) verifyFile(path string) ([]*verifier.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class file: %w", err)
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return []*verifier.Report{rejectedFile(path, err)}, nil
	}

	extra := c.extra
	if root := repository.ClassRoot(path, cf.ClassName()); root != "" {
		extra = append([]string{root}, extra...)
	}
	classPath, err := c.open(extra...)
	if err != nil {
		return nil, err
	}
	defer classPath.Close()

	repo := repository.NewMemory(classPath, cf)
	report, err := c.check(verifier.NewRegistry(repo, verifier.WithMaxPass(c.maxPass)), cf.ClassName(), data)
	if err != nil {
		return nil, err
	}
	return []*verifier.Report{report}, nil
}

func (c *checker) verifyArchive(path string) ([]*verifier.Report, error) {
	src, err := repository.Open(path)
	if err != nil {
		return nil, err
	}
	archive, ok := src.(*repository.Archive)
	if !ok {
		if c, ok := src.(interface{ Close() error }); ok {
			c.Close()
		}
		return nil, fmt.Errorf("%s is not an archive", path)
	}
	parent, err := c.open(c.extra...)
	if err != nil {
		archive.Close()
		return nil, err
	}
	defer parent.Close()
	classPath := repository.NewClassPath(parent, archive)
	defer classPath.Close()

	names := archive.Names()
	sort.Strings(names)

	registry := verifier.NewRegistry(classPath, verifier.WithMaxPass(c.maxPass))
	var reports []*verifier.Report
	for _, name := range names {
		data, err := archive.Find(name)
		if err != nil {
			return nil, fmt.Errorf("read %s from %s: %w", name, path, err)
		}
		report, err := c.check(registry, name, data)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (c *checker) verifyName(name string) ([]*verifier.Report, error) {
	classPath, err := c.open(c.extra...)
	if err != nil {
		return nil, err
	}
	defer classPath.Close()

	registry := verifier.NewRegistry(classPath, verifier.WithMaxPass(c.maxPass))
	cf, err := classPath.LoadClass(name)
	if err != nil {
		// Pass 1 reports the missing class.
		report := registry.VerifyClass(name)
		return []*verifier.Report{&report}, nil
	}
	data, err := cf.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", name, err)
	}
	report, err := c.check(registry, cf.ClassName(), data)
	if err != nil {
		return nil, err
	}
	return []*verifier.Report{report}, nil
}

// check returns the cached report for data or verifies name and caches
// the result.
func (c *checker) check(registry *verifier.Registry, name string, data []byte) (*verifier.Report, error) {
	digest := store.Digest(data)
	if c.cache != nil {
		report, err := c.cache.Get(digest, c.maxPass)
		if err == nil && report.ClassName == repository.InternalName(name) {
			log.Debugf("cache hit for %s", name)
			return report, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	report := registry.VerifyClass(name)
	if c.cache != nil {
		if err := c.cache.Put(digest, c.maxPass, &report); err != nil {
			return nil, err
		}
	}
	return &report, nil
}

func rejectedFile(path string, err error) *verifier.Report {
	return &verifier.Report{
		ClassName: path,
		Pass1:     verifier.Rejected(err.Error()),
		Pass2:     verifier.NotYet,
	}
}
