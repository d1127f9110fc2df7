// Package lsp serves decode failures of class and dex files as language
// server diagnostics.
package lsp

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/bcdump/dump"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "bcdump"

type Server struct {
	handler protocol.Handler
	server  *server.Server
	version string
	opts    dump.Options
	log     commonlog.Logger
}

func NewServer(version string, opts dump.Options) *Server {
	ls := &Server{
		version: version,
		opts:    opts,
		log:     commonlog.GetLogger("bcdump.lsp"),
	}

	ls.handler = protocol.Handler{
		Initialize:          ls.initialize,
		Initialized:         ls.initialized,
		Shutdown:            ls.shutdown,
		SetTrace:            ls.setTrace,
		TextDocumentDidOpen: ls.textDocumentDidOpen,
		TextDocumentDidSave: ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(false),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.publish(ctx, params.TextDocument.URI)
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	ls.publish(ctx, params.TextDocument.URI)
	return nil
}

// publish decodes the file behind uri and sends its diagnostics. Files
// that are not class or dex files are ignored. The editor's text is never
// used since both formats are binary.
func (ls *Server) publish(ctx *glsp.Context, uri protocol.DocumentUri) {
	path, err := uriToPath(uri)
	if err != nil {
		ls.log.Warningf("bad uri %s: %s", uri, err)
		return
	}
	if !Supported(path) {
		return
	}
	diagnostics, err := ls.Diagnostics(path)
	if err != nil {
		ls.log.Errorf("%s", err)
		return
	}
	ctx.Notify(string(protocol.ServerTextDocumentPublishDiagnostics), protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Supported reports whether path names a class or dex file.
func Supported(path string) bool {
	switch filepath.Ext(path) {
	case ".class", ".dex":
		return true
	}
	return false
}

// Diagnostics decodes the file at path. A clean decode yields an empty,
// non-nil list so that earlier diagnostics are cleared.
func (ls *Server) Diagnostics(path string) ([]protocol.Diagnostic, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := dump.Diagnose(buf, ls.opts)
	if d == nil {
		return []protocol.Diagnostic{}, nil
	}
	ls.log.Infof("%s: %s", path, d.Message)

	severity := protocol.DiagnosticSeverityError
	source := lsName
	diag := protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 0},
		},
		Severity: &severity,
		Source:   &source,
		Message:  d.Message,
	}
	if d.Kind != 0 {
		diag.Code = &protocol.IntegerOrString{Value: d.Kind.String()}
	}
	if d.Offset >= 0 {
		diag.Data = map[string]any{"offset": d.Offset}
	}
	return []protocol.Diagnostic{diag}, nil
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
