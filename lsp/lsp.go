// Package lsp publishes verification results for .class files as
// diagnostics over the Language Server Protocol.
package lsp

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dhamidi/justice/classfile"
	"github.com/dhamidi/justice/config"
	"github.com/dhamidi/justice/repository"
	"github.com/dhamidi/justice/verifier"
)

const lsName = "justice"

var log = commonlog.GetLogger("justice.lsp")

type LSPServer struct {
	handler protocol.Handler
	server  *server.Server
	version string

	mu     sync.Mutex
	config *config.Config
	open   map[string]bool
}

func NewLSPServer(version string) *LSPServer {
	ls := &LSPServer{
		version: version,
		open:    make(map[string]bool),
	}

	ls.handler = protocol.Handler{
		Initialize:                     ls.initialize,
		Initialized:                    ls.initialized,
		Shutdown:                       ls.shutdown,
		SetTrace:                       ls.setTrace,
		TextDocumentDidOpen:            ls.textDocumentDidOpen,
		TextDocumentDidClose:           ls.textDocumentDidClose,
		TextDocumentDidSave:            ls.textDocumentDidSave,
		WorkspaceDidChangeWatchedFiles: ls.workspaceDidChangeWatchedFiles,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	cfg, err := config.FindAndLoad(rootDir)
	if err != nil {
		log.Errorf("loading configuration from %s: %s", rootDir, err)
		cfg = config.Default(rootDir)
	}
	ls.mu.Lock()
	ls.config = cfg
	ls.mu.Unlock()

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Save:      &protocol.SaveOptions{},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	if !isClassFile(uri) {
		return nil
	}
	ls.mu.Lock()
	ls.open[uri] = true
	ls.mu.Unlock()
	ls.publish(ctx, uri)
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	ls.mu.Lock()
	delete(ls.open, uri)
	ls.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if isClassFile(params.TextDocument.URI) {
		ls.publish(ctx, params.TextDocument.URI)
	}
	return nil
}

// workspaceDidChangeWatchedFiles re-verifies open class files when any
// class file changes, since a change to a superclass can change verdicts.
func (ls *LSPServer) workspaceDidChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	changed := false
	for _, change := range params.Changes {
		if isClassFile(change.URI) {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	ls.mu.Lock()
	uris := make([]string, 0, len(ls.open))
	for uri := range ls.open {
		uris = append(uris, uri)
	}
	ls.mu.Unlock()

	for _, uri := range uris {
		ls.publish(ctx, uri)
	}
	return nil
}

func (ls *LSPServer) publish(ctx *glsp.Context, uri protocol.DocumentUri) {
	path, err := uriToPath(uri)
	if err != nil {
		return
	}
	ls.mu.Lock()
	cfg := ls.config
	ls.mu.Unlock()
	if cfg == nil {
		cfg = config.Default(filepath.Dir(path))
	}

	diagnostics := Diagnose(cfg, path)
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), path)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnose verifies the class file at path against the configured class
// path. The directory the class was compiled into is searched first.
func Diagnose(cfg *config.Config, path string) []protocol.Diagnostic {
	data, err := os.ReadFile(path)
	if err != nil {
		return []protocol.Diagnostic{diagnostic(protocol.DiagnosticSeverityError, err.Error())}
	}
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return []protocol.Diagnostic{diagnostic(protocol.DiagnosticSeverityError, err.Error())}
	}

	var extra []string
	if root := repository.ClassRoot(path, cf.ClassName()); root != "" {
		extra = append(extra, root)
	}
	classPath, err := cfg.Repository(extra...)
	if err != nil {
		return []protocol.Diagnostic{diagnostic(protocol.DiagnosticSeverityError, err.Error())}
	}
	defer classPath.Close()

	maxPass, err := cfg.MaxPass()
	if err != nil {
		maxPass = verifier.Pass3a
	}
	repo := repository.NewMemory(classPath, cf)
	report := verifier.NewRegistry(repo, verifier.WithMaxPass(maxPass)).VerifyClass(cf.ClassName())
	return Diagnostics(&report)
}

// Diagnostics turns every rejection in report into an error and every
// warning into a warning. Class files have no text positions, so all
// diagnostics are attached to the start of the document.
func Diagnostics(report *verifier.Report) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	reject := func(pass string, res verifier.Result) {
		if res.Status == verifier.StatusRejected {
			diagnostics = append(diagnostics, diagnostic(protocol.DiagnosticSeverityError, "Pass "+pass+": "+res.Message))
		}
	}
	reject("1", report.Pass1)
	reject("2", report.Pass2)
	for _, m := range report.Methods {
		reject("3a, method '"+m.Name+m.Descriptor+"'", m.Result)
	}
	for _, msg := range report.Messages {
		diagnostics = append(diagnostics, diagnostic(protocol.DiagnosticSeverityWarning, msg))
	}
	return diagnostics
}

func diagnostic(severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := lsName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 0},
		},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func isClassFile(uri string) bool {
	return strings.HasSuffix(uri, ".class")
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}
