package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/config/layer"
	"github.com/dshills/glance/internal/config/loader"
	"github.com/dshills/glance/internal/config/schema"
	"github.com/dshills/glance/internal/logging"
)

const (
	// AppName is the directory name used under the user config home.
	AppName = "glance"
	// ProjectDir is the directory searched for in the working directory
	// and its ancestors.
	ProjectDir = ".glance"
	// ActionsBase is the base name of action documents.
	ActionsBase = "actions"
)

// Mode selects how invalid sources are handled.
type Mode int

const (
	// Strict fails the whole resolution on the first invalid source.
	Strict Mode = iota
	// Lenient skips invalid sources and records a warning.
	Lenient
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// SourceInfo describes one candidate source.
type SourceInfo struct {
	Source   layer.Source
	Path     string
	Priority int
	Size     int64
	Loaded   bool
	// Skipped explains why a present source was not merged.
	Skipped string
}

// Result is the outcome of a resolution.
type Result struct {
	Config    *action.Config
	Sources   []SourceInfo
	Conflicts []layer.Conflict
	Warnings  []string
}

// LoadedSources returns the sources that were merged.
func (r *Result) LoadedSources() []SourceInfo {
	var out []SourceInfo
	for _, s := range r.Sources {
		if s.Loaded {
			out = append(out, s)
		}
	}
	return out
}

// Resolver produces the effective action configuration.
type Resolver struct {
	fs        loader.FileSystem
	mode      Mode
	userDir   string
	workDir   string
	override  string
	maxSource int64
	maxTotal  int64
	validator *schema.Validator
	logger    *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFS sets the file system.
func WithFS(fsys loader.FileSystem) Option {
	return func(r *Resolver) {
		if fsys != nil {
			r.fs = fsys
		}
	}
}

// WithMode sets strict or lenient handling.
func WithMode(m Mode) Option {
	return func(r *Resolver) { r.mode = m }
}

// WithUserDir sets the directory holding the user-level document.
func WithUserDir(dir string) Option {
	return func(r *Resolver) { r.userDir = dir }
}

// WithWorkDir sets the directory project discovery starts from.
func WithWorkDir(dir string) Option {
	return func(r *Resolver) { r.workDir = dir }
}

// WithOverride sets an explicit, authoritative document path.
func WithOverride(path string) Option {
	return func(r *Resolver) { r.override = path }
}

// WithMaxSourceBytes sets the per-source size limit.
func WithMaxSourceBytes(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSource = n
		}
	}
}

// WithMaxTotalBytes sets the aggregate size limit.
func WithMaxTotalBytes(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxTotal = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver. By default it is strict, reads the real
// file system, and discovers from the process working directory.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:        loader.DefaultFS(),
		mode:      Strict,
		userDir:   filepath.Join(xdg.ConfigHome, AppName),
		maxSource: loader.DefaultMaxSourceBytes,
		maxTotal:  loader.DefaultMaxTotalBytes,
		validator: schema.NewValidator(),
	}
	if wd, err := os.Getwd(); err == nil {
		r.workDir = wd
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("config")
	return r
}

// Mode returns the resolver mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// candidate is a discovered source path.
type candidate struct {
	source layer.Source
	path   string
}

// discover returns the sources to load in ascending precedence.
func (r *Resolver) discover() ([]candidate, error) {
	if r.override != "" {
		if !r.exists(r.override) {
			return nil, &SourceError{Source: layer.SourceOverride, Path: r.override, Err: ErrOverrideNotFound}
		}
		return []candidate{{layer.SourceOverride, r.override}}, nil
	}

	var out []candidate
	user := ""
	if r.userDir != "" {
		user = r.firstExisting(r.userDir)
		if user != "" {
			out = append(out, candidate{layer.SourceUser, user})
		}
	}
	if project := r.findProject(); project != "" && !samePath(project, user) {
		out = append(out, candidate{layer.SourceProject, project})
	}
	return out, nil
}

// findProject walks from the working directory to the root looking for a
// project document.
func (r *Resolver) findProject() string {
	if r.workDir == "" {
		return ""
	}
	dir, err := filepath.Abs(r.workDir)
	if err != nil {
		dir = filepath.Clean(r.workDir)
	}
	for {
		if p := r.firstExisting(filepath.Join(dir, ProjectDir)); p != "" {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (r *Resolver) firstExisting(dir string) string {
	for _, ext := range loader.Extensions {
		p := filepath.Join(dir, ActionsBase+ext)
		if r.exists(p) {
			return p
		}
	}
	return ""
}

func (r *Resolver) exists(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// WatchPaths returns every path whose creation or change could alter the
// result of Resolve.
func (r *Resolver) WatchPaths() []string {
	if r.override != "" {
		return []string{r.override}
	}
	var paths []string
	add := func(dir string) {
		for _, ext := range loader.Extensions {
			paths = append(paths, filepath.Join(dir, ActionsBase+ext))
		}
	}
	if r.userDir != "" {
		add(r.userDir)
	}
	if project := r.findProject(); project != "" {
		add(filepath.Dir(project))
	} else if r.workDir != "" {
		add(filepath.Join(r.workDir, ProjectDir))
	}
	return paths
}

// Resolve discovers, loads, validates and merges all sources.
func (r *Resolver) Resolve() (*Result, error) {
	res := &Result{}

	candidates, err := r.discover()
	if err != nil {
		if r.mode == Strict {
			return nil, err
		}
		res.Warnings = append(res.Warnings, err.Error())
		candidates = nil
	}

	ld := loader.New(loader.WithFS(r.fs), loader.WithMaxBytes(r.maxSource))
	var (
		layers []*layer.Layer
		total  int64
	)

	for _, c := range candidates {
		info := SourceInfo{Source: c.source, Path: c.path, Priority: layer.DefaultPriority(c.source)}

		cfg, size, err := r.load(ld, c)
		info.Size = size
		if err != nil {
			if errors.Is(err, ErrSourceTooLarge) || r.mode == Strict {
				return nil, err
			}
			info.Skipped = err.Error()
			res.Sources = append(res.Sources, info)
			res.Warnings = append(res.Warnings, err.Error())
			r.logger.Warn("skipping source: %v", err)
			continue
		}
		if cfg == nil {
			info.Skipped = "not found"
			res.Sources = append(res.Sources, info)
			continue
		}

		total += size
		if total > r.maxTotal {
			return nil, &SourceError{
				Source: c.source,
				Path:   c.path,
				Err:    fmt.Errorf("%w: aggregate size %d exceeds limit %d", ErrSourceTooLarge, total, r.maxTotal),
			}
		}

		info.Loaded = true
		res.Sources = append(res.Sources, info)
		layers = append(layers, layer.NewLayer(c.source, c.path, cfg))
		r.logger.Debug("loaded %s source %s (%d actions)", c.source, c.path, len(cfg.Actions))
	}

	res.Config, res.Conflicts = layer.Merge(layers)
	for _, c := range res.Conflicts {
		r.logger.Debug("conflict: %s", c)
	}
	return res, nil
}

// load reads one source. A nil config with a nil error means the file
// disappeared between discovery and loading.
func (r *Resolver) load(ld *loader.Loader, c candidate) (*action.Config, int64, error) {
	wrap := func(sentinel, err error) error {
		return &SourceError{Source: c.source, Path: c.path, Err: fmt.Errorf("%w: %w", sentinel, err)}
	}

	doc, err := ld.Load(c.path)
	if err != nil {
		if errors.Is(err, loader.ErrTooLarge) {
			var se *loader.SizeError
			size := int64(0)
			if errors.As(err, &se) {
				size = se.Size
			}
			return nil, size, wrap(ErrSourceTooLarge, err)
		}
		return nil, 0, wrap(ErrInvalidSource, err)
	}
	if doc == nil {
		return nil, 0, nil
	}

	if err := r.validator.Validate(c.path, doc.JSON); err != nil {
		return nil, doc.Size, wrap(ErrInvalidSource, err)
	}

	var cfg action.Config
	if err := json.Unmarshal(doc.JSON, &cfg); err != nil {
		return nil, doc.Size, wrap(ErrInvalidSource, err)
	}
	return &cfg, doc.Size, nil
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
