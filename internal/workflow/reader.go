package workflow

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// ProgrammaticMethod describes a model that was created directly in code.
// It is a terminal leaf with no recorded provenance, so it cannot be
// materialized again.
type ProgrammaticMethod struct {
	stepBase
}

// NewProgrammaticMethod creates a programmatic-origin step.
func NewProgrammaticMethod() *ProgrammaticMethod {
	return &ProgrammaticMethod{stepBase: newStepBase()}
}

func (*ProgrammaticMethod) Type() string         { return TypeProgrammatic }
func (*ProgrammaticMethod) Parents() []uuid.UUID { return nil }

func (p *ProgrammaticMethod) resolve(context.Context, *Env, *Workflow) (*DataModel, error) {
	return nil, fmt.Errorf("step %s was created programmatically: %w", p.id, ErrNotReproducible)
}

// LocalReaderMethod describes a model that was read from one or more local
// source files via a reader provider.
type LocalReaderMethod struct {
	stepBase
	paths  []string
	plugin string
}

// NewLocalReaderMethod creates a local read step. plugin may be empty, in
// which case the best-priority reader claiming the paths is used.
func NewLocalReaderMethod(paths []string, plugin string) *LocalReaderMethod {
	return &LocalReaderMethod{stepBase: newStepBase(), paths: paths, plugin: plugin}
}

// Paths returns the source file paths.
func (l *LocalReaderMethod) Paths() []string { return l.paths }

// Plugin returns the explicit reader plugin, or "" for best-priority pick.
func (l *LocalReaderMethod) Plugin() string { return l.plugin }

func (*LocalReaderMethod) Type() string         { return TypeLocalReader }
func (*LocalReaderMethod) Parents() []uuid.UUID { return nil }

func (l *LocalReaderMethod) resolve(ctx context.Context, env *Env, _ *Workflow) (*DataModel, error) {
	return l.Run(ctx, env)
}

// Run reads the file(s) through the reader registry and tags the result with
// its source provenance when the reader did not attach one.
func (l *LocalReaderMethod) Run(ctx context.Context, env *Env) (*DataModel, error) {
	model, err := env.Readers.Run(ctx, l.paths, l.plugin)
	if err != nil {
		return nil, err
	}
	return model.WithSource(l.paths, l.plugin), nil
}

// RemoteReaderMethod describes a model that was read from a remote source file
// via scp, optionally through a WSL bridge.
type RemoteReaderMethod struct {
	stepBase
	host     string
	username string
	path     string
	plugin   string
	wsl      bool
}

// NewRemoteReaderMethod creates a remote read step.
func NewRemoteReaderMethod(host, username, path, plugin string, wsl bool) *RemoteReaderMethod {
	return &RemoteReaderMethod{
		stepBase: newStepBase(),
		host:     host,
		username: username,
		path:     path,
		plugin:   plugin,
		wsl:      wsl,
	}
}

func (r *RemoteReaderMethod) Host() string     { return r.host }
func (r *RemoteReaderMethod) Username() string { return r.username }
func (r *RemoteReaderMethod) Path() string     { return r.path }
func (r *RemoteReaderMethod) Plugin() string   { return r.plugin }
func (r *RemoteReaderMethod) WSL() bool        { return r.wsl }

func (*RemoteReaderMethod) Type() string         { return TypeRemoteReader }
func (*RemoteReaderMethod) Parents() []uuid.UUID { return nil }

// Source returns the scp source spec, e.g. "user@host:/path/to/file".
func (r *RemoteReaderMethod) Source() string {
	return fmt.Sprintf("%s@%s:%s", r.username, r.host, r.path)
}

func (r *RemoteReaderMethod) resolve(ctx context.Context, env *Env, _ *Workflow) (*DataModel, error) {
	return r.Run(ctx, env)
}

// Run copies the remote file into a temporary directory and reads it through
// the reader registry. The model keeps the remote file name as its title.
func (r *RemoteReaderMethod) Run(ctx context.Context, env *Env) (*DataModel, error) {
	tmpdir, err := os.MkdirTemp("", "himena-scp-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	dst := filepath.Join(tmpdir, filepath.Base(r.path))
	var args []string
	if r.wsl {
		args = []string{"wsl", "-e", "scp", r.Source(), dst}
	} else {
		args = []string{"scp", r.Source(), dst}
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // G204: args are built from recorded provenance fields
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("scp %s: %w (%s)", r.Source(), err, out)
	}

	model, err := env.Readers.Run(ctx, []string{dst}, r.plugin)
	if err != nil {
		return nil, err
	}
	model.Title = filepath.Base(r.path)
	model.Workflow = New(r)
	return model, nil
}
