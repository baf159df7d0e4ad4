package module

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rlch/formulang"
)

// Loader handles loading and caching of Formulang modules.
type Loader struct {
	cache  map[string]*Module
	logger *zap.Logger

	// Parser is the function used to parse .fm source. Defaults to
	// formulang.Parse; tests override it to inject malformed ASTs.
	Parser func(data []byte) (*formulang.Module, error)

	// AllowPartial, when true, treats a parse error accompanied by a
	// non-nil AST as a successful load: the partial AST is cached and
	// returned with its errors recorded on Module.ParseDiagnostics,
	// instead of failing the load outright. Used by the query service so
	// one syntax error doesn't abort an entire Validate/Solve call.
	AllowPartial bool
}

// NewLoader creates a loader with an empty cache that fails outright on any
// parse error.
func NewLoader() *Loader {
	return &Loader{
		cache:  make(map[string]*Module),
		logger: zap.NewNop(),
		Parser: formulang.Parse,
	}
}

// NewRecoveringLoader creates a loader that parses with error recovery and
// tolerates partial ASTs, recording what went wrong on each Module's
// ParseDiagnostics rather than failing the load. Used by the diagnostics/
// query service, which must succeed on partially-broken inputs.
func NewRecoveringLoader() *Loader {
	return &Loader{
		cache:        make(map[string]*Module),
		logger:       zap.NewNop(),
		Parser:       func(data []byte) (*formulang.Module, error) { return formulang.ParseWithRecovery(data, true) },
		AllowPartial: true,
	}
}

// SetLogger attaches debug-level tracing of cache hits and disk loads. A
// nil logger is replaced with zap.NewNop().
func (l *Loader) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	l.logger = logger
}

// Load loads a module from path, resolved relative to the current working
// directory if it isn't already absolute. Returns the cached module if
// already loaded.
func (l *Loader) Load(path string) (*Module, error) {
	absPath, err := l.resolvePath(path, "")
	if err != nil {
		return nil, err
	}

	return l.loadAbsolute(absPath, "")
}

// LoadFrom loads a module, resolving path relative to the directory of an
// importing module. Used for import statements.
func (l *Loader) LoadFrom(path string, from *Module) (*Module, error) {
	absPath, err := l.resolvePath(path, from.Path)
	if err != nil {
		return nil, &LoadError{Path: path, ImportedFrom: from.Path, Cause: err}
	}

	return l.loadAbsolute(absPath, from.Path)
}

func (l *Loader) resolvePath(path, basePath string) (string, error) { //nolint:funcorder
	if filepath.IsAbs(path) {
		return l.normalizeFormulangPath(path)
	}

	var baseDir string

	if basePath != "" {
		baseDir = filepath.Dir(basePath)
	} else {
		var err error

		baseDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return l.normalizeFormulangPath(filepath.Join(baseDir, path))
}

// normalizeFormulangPath ensures path resolves to an existing .fm file,
// trying the path as given first, then appending the .fm extension.
func (l *Loader) normalizeFormulangPath(path string) (string, error) { //nolint:funcorder
	path = filepath.Clean(path)

	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}

	if filepath.Ext(path) == "" {
		if resolved := tryExtension(path, ".fm"); resolved != "" {
			return filepath.Abs(resolved)
		}
	}

	return "", fmt.Errorf("%w: %s", ErrModuleNotFound, path)
}

func tryExtension(path, ext string) string {
	withExt := path + ext

	if _, err := os.Stat(withExt); err == nil {
		return withExt
	}

	return ""
}

func (l *Loader) loadAbsolute(absPath, importedFrom string) (*Module, error) { //nolint:funcorder
	if mod, ok := l.cache[absPath]; ok {
		l.logger.Debug("module cache hit", zap.String("path", absPath))

		return mod, nil
	}

	l.logger.Debug("loading module from disk", zap.String("path", absPath), zap.String("importedFrom", importedFrom))

	data, err := os.ReadFile(absPath) //nolint:gosec // G304: path is resolved from source, not raw user input
	if err != nil {
		return nil, &LoadError{Path: absPath, ImportedFrom: importedFrom, Cause: err}
	}

	mod, err := l.Parser(data)
	if err != nil {
		if l.AllowPartial && mod != nil {
			l.logger.Debug("partial parse, continuing with recovered AST", zap.String("path", absPath))

			m := NewModule(absPath, mod)
			m.ParseDiagnostics = formulang.ParseDiagnostics(err)
			l.cache[absPath] = m

			return m, nil
		}

		return nil, &LoadError{Path: absPath, ImportedFrom: importedFrom, Cause: &ParseFailureError{Err: err}}
	}

	m := NewModule(absPath, mod)
	l.cache[absPath] = m

	return m, nil
}

// Clear empties the module cache.
func (l *Loader) Clear() {
	l.cache = make(map[string]*Module)
}

// Cached returns a copy of every module loaded so far, keyed by absolute
// path.
func (l *Loader) Cached() map[string]*Module {
	result := make(map[string]*Module, len(l.cache))
	maps.Copy(result, l.cache)

	return result
}

// Preload seeds the cache with an already-parsed module, so that LoadFrom
// calls against its imports can find it without touching disk. Used by the
// query package, which parses editor buffers in memory.
func (l *Loader) Preload(path string, ast *formulang.Module) *Module {
	m := NewModule(path, ast)
	l.cache[path] = m

	return m
}
