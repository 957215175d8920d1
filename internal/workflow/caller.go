package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StepReplacer names one captured step to be swapped for a freshly constructed
// one at call time.
type StepReplacer interface {
	// StepID identifies the step to replace.
	StepID() uuid.UUID

	// ArgName is the free parameter name bound to this replacer.
	ArgName() string

	// ArgType is the annotation of the expected argument ("Path", "str").
	ArgType() string

	// CreateStep builds the replacement step from a concrete argument value.
	// The step gets a new id: a differently-parametrized read is a distinct
	// execution event.
	CreateStep(value any) (Step, error)
}

// LocalReaderReplacer re-supplies a LocalReaderMethod with a new path.
type LocalReaderReplacer struct {
	stepID uuid.UUID
	arg    string
	plugin string
}

func (r *LocalReaderReplacer) StepID() uuid.UUID { return r.stepID }
func (r *LocalReaderReplacer) ArgName() string   { return r.arg }
func (r *LocalReaderReplacer) ArgType() string   { return "Path" }

func (r *LocalReaderReplacer) CreateStep(value any) (Step, error) {
	switch v := value.(type) {
	case string:
		return NewLocalReaderMethod([]string{v}, r.plugin), nil
	case []string:
		return NewLocalReaderMethod(v, r.plugin), nil
	default:
		return nil, fmt.Errorf("argument %q: expected a path, got %T", r.arg, value)
	}
}

// RemoteReaderReplacer re-supplies a RemoteReaderMethod with a new remote path,
// keeping the transport fields of the captured step.
type RemoteReaderReplacer struct {
	stepID   uuid.UUID
	arg      string
	plugin   string
	host     string
	username string
	wsl      bool
}

func (r *RemoteReaderReplacer) StepID() uuid.UUID { return r.stepID }
func (r *RemoteReaderReplacer) ArgName() string   { return r.arg }
func (r *RemoteReaderReplacer) ArgType() string   { return "str" }

func (r *RemoteReaderReplacer) CreateStep(value any) (Step, error) {
	path, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("argument %q: expected a remote path spec, got %T", r.arg, value)
	}
	return NewRemoteReaderMethod(r.host, r.username, path, r.plugin, r.wsl), nil
}

// Caller turns a captured workflow into a reusable function with holes for
// specific inputs. The named steps are replaced per invocation while all other
// steps are shared by reference with their original ids.
type Caller struct {
	workflow  *Workflow
	replacers []StepReplacer
	argNames  map[string]struct{}
}

// NewCaller wraps a workflow for parametrization.
func NewCaller(wf *Workflow) *Caller {
	return &Caller{workflow: wf, argNames: make(map[string]struct{})}
}

// Workflow returns the captured workflow.
func (c *Caller) Workflow() *Workflow { return c.workflow }

// Replacers returns the registered step replacers.
func (c *Caller) Replacers() []StepReplacer { return c.replacers }

func (c *Caller) claimArgName(name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("path_%d", len(c.replacers))
	}
	if _, taken := c.argNames[name]; taken {
		return "", fmt.Errorf("argument %q: %w", name, ErrDuplicateArgument)
	}
	c.argNames[name] = struct{}{}
	return name, nil
}

// ParametrizeReader registers that the named local-reader step will be
// re-supplied with a new path at call time. argName is auto-generated as
// path_0, path_1, ... when empty. pluginOverride replaces the captured
// plugin when non-empty.
func (c *Caller) ParametrizeReader(stepID uuid.UUID, argName, pluginOverride string) (*LocalReaderReplacer, error) {
	idx, ok := c.workflow.indexOf(stepID)
	if !ok {
		return nil, fmt.Errorf("parametrize %s: %w", stepID, ErrStepNotFound)
	}
	reader, ok := c.workflow.At(idx).(*LocalReaderMethod)
	if !ok {
		return nil, fmt.Errorf("step %s is %q, want %q: %w",
			stepID, c.workflow.At(idx).Type(), TypeLocalReader, ErrInvalidStepType)
	}
	name, err := c.claimArgName(argName)
	if err != nil {
		return nil, err
	}
	plugin := reader.Plugin()
	if pluginOverride != "" {
		plugin = pluginOverride
	}
	r := &LocalReaderReplacer{stepID: stepID, arg: name, plugin: plugin}
	c.replacers = append(c.replacers, r)
	return r, nil
}

// ParametrizeRemoteReader registers that the named remote-reader step will be
// re-supplied with a new remote path at call time, keeping host, username and
// the WSL flag of the captured step.
func (c *Caller) ParametrizeRemoteReader(stepID uuid.UUID, argName, pluginOverride string) (*RemoteReaderReplacer, error) {
	idx, ok := c.workflow.indexOf(stepID)
	if !ok {
		return nil, fmt.Errorf("parametrize %s: %w", stepID, ErrStepNotFound)
	}
	reader, ok := c.workflow.At(idx).(*RemoteReaderMethod)
	if !ok {
		return nil, fmt.Errorf("step %s is %q, want %q: %w",
			stepID, c.workflow.At(idx).Type(), TypeRemoteReader, ErrInvalidStepType)
	}
	name, err := c.claimArgName(argName)
	if err != nil {
		return nil, err
	}
	plugin := reader.Plugin()
	if pluginOverride != "" {
		plugin = pluginOverride
	}
	r := &RemoteReaderReplacer{
		stepID:   stepID,
		arg:      name,
		plugin:   plugin,
		host:     reader.Host(),
		username: reader.Username(),
		wsl:      reader.WSL(),
	}
	c.replacers = append(c.replacers, r)
	return r, nil
}

// Annotations exposes each argument's expected type plus the return type,
// letting a command-palette UI build an input form without the engine knowing
// about widgets.
func (c *Caller) Annotations() map[string]string {
	ann := make(map[string]string, len(c.replacers)+1)
	for _, r := range c.replacers {
		ann[r.ArgName()] = r.ArgType()
	}
	ann["return"] = "DataModel"
	return ann
}

// Build constructs the per-invocation workflow: replaced steps are swapped in
// at their original indices with fresh ids, all other steps are reused by
// reference. References to a replaced step from downstream steps resolve
// through the new workflow's alias table. The captured workflow is never
// modified.
func (c *Caller) Build(args map[string]any) (*Workflow, error) {
	steps := make([]Step, c.workflow.Len())
	copy(steps, c.workflow.Steps())
	aliases := make(map[uuid.UUID]uuid.UUID, len(c.replacers))

	for _, r := range c.replacers {
		value, ok := args[r.ArgName()]
		if !ok {
			return nil, fmt.Errorf("missing argument %q", r.ArgName())
		}
		idx, ok := c.workflow.indexOf(r.StepID())
		if !ok {
			return nil, fmt.Errorf("replacer step %s: %w", r.StepID(), ErrStepNotFound)
		}
		step, err := r.CreateStep(value)
		if err != nil {
			return nil, err
		}
		steps[idx] = step
		aliases[r.StepID()] = step.ID()
	}
	for name := range args {
		if _, known := c.argNames[name]; !known {
			return nil, fmt.Errorf("unknown argument %q", name)
		}
	}
	wf := New(steps...)
	wf.aliases = aliases
	return wf, nil
}

// Call builds the replaced workflow and computes its tail.
// Failures propagate unchanged; the caller adds no error boundary.
func (c *Caller) Call(ctx context.Context, env *Env, args map[string]any) (*DataModel, error) {
	wf, err := c.Build(args)
	if err != nil {
		return nil, err
	}
	return wf.GetModel(ctx, env)
}
