package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Wire tags for the command parameter variants.
const (
	ParamUser   = "user"
	ParamModel  = "model"
	ParamWindow = "window"
	ParamList   = "list"
)

// CommandParameter describes how one argument of a recorded command was
// supplied: as an opaque literal, as a reference to another node's output, as
// a window reference, or as a list of node references.
type CommandParameter interface {
	// ParamType returns the wire tag of this variant.
	ParamType() string

	// ParamName returns the argument name.
	ParamName() string

	// refs returns the node ids this parameter contributes as DAG edges.
	refs() []uuid.UUID
}

// UserParameter is a literal value chosen by the user.
type UserParameter struct {
	Name  string
	Value any
}

func (UserParameter) ParamType() string   { return ParamUser }
func (p UserParameter) ParamName() string { return p.Name }
func (UserParameter) refs() []uuid.UUID   { return nil }

// ModelParameter references another node's output model.
type ModelParameter struct {
	Name      string
	Value     uuid.UUID
	ModelType string
}

func (ModelParameter) ParamType() string   { return ParamModel }
func (p ModelParameter) ParamName() string { return p.Name }
func (p ModelParameter) refs() []uuid.UUID { return []uuid.UUID{p.Value} }

// WindowParameter references a node whose output should additionally be
// surfaced as a live window before the command runs.
type WindowParameter struct {
	Name      string
	Value     uuid.UUID
	ModelType string
}

func (WindowParameter) ParamType() string   { return ParamWindow }
func (p WindowParameter) ParamName() string { return p.Name }
func (p WindowParameter) refs() []uuid.UUID { return []uuid.UUID{p.Value} }

// ListOfModelParameter references a list of nodes.
type ListOfModelParameter struct {
	Name  string
	Value []uuid.UUID
}

func (ListOfModelParameter) ParamType() string   { return ParamList }
func (p ListOfModelParameter) ParamName() string { return p.Name }
func (p ListOfModelParameter) refs() []uuid.UUID { return p.Value }

// ParseParameter normalizes a name=value argument into a CommandParameter plus
// the workflow that contributes the referenced provenance. Models become node
// references; everything else is recorded as an opaque literal.
func ParseParameter(name string, value any) (CommandParameter, *Workflow, error) {
	switch v := value.(type) {
	case *DataModel:
		id, err := provenanceHead(v)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		return ModelParameter{Name: name, Value: id, ModelType: v.Type}, v.Workflow, nil
	case []*DataModel:
		ids := make([]uuid.UUID, 0, len(v))
		wfs := make([]*Workflow, 0, len(v))
		for _, each := range v {
			id, err := provenanceHead(each)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %q: %w", name, err)
			}
			ids = append(ids, id)
			wfs = append(wfs, each.Workflow)
		}
		return ListOfModelParameter{Name: name, Value: ids}, Concat(wfs), nil
	default:
		return UserParameter{Name: name, Value: value}, New(), nil
	}
}

// provenanceHead returns the model's head node id. A model with no workflow
// attached is treated like one with an empty workflow.
func provenanceHead(m *DataModel) (uuid.UUID, error) {
	if m.Workflow == nil {
		return uuid.Nil, ErrEmptyWorkflow
	}
	return m.Workflow.LastID()
}

// CommandExecution describes a model that was produced by dispatching a named
// command. Contexts are the window/model the command acted on; Parameters are
// its explicit arguments. Parents are the union of all node-referencing
// entries in both lists.
type CommandExecution struct {
	stepBase
	commandID  string
	contexts   []CommandParameter
	parameters []CommandParameter
}

// NewCommandExecution creates a command step.
func NewCommandExecution(commandID string, contexts, parameters []CommandParameter) *CommandExecution {
	return &CommandExecution{
		stepBase:   newStepBase(),
		commandID:  commandID,
		contexts:   contexts,
		parameters: parameters,
	}
}

// CommandID returns the dispatched command id.
func (c *CommandExecution) CommandID() string { return c.commandID }

// Contexts returns the recorded context parameters.
func (c *CommandExecution) Contexts() []CommandParameter { return c.contexts }

// Parameters returns the recorded explicit parameters.
func (c *CommandExecution) Parameters() []CommandParameter { return c.parameters }

func (*CommandExecution) Type() string { return TypeCommand }

func (c *CommandExecution) Parents() []uuid.UUID {
	var parents []uuid.UUID
	for _, ctx := range c.contexts {
		parents = append(parents, ctx.refs()...)
	}
	for _, p := range c.parameters {
		parents = append(parents, p.refs()...)
	}
	return parents
}

func (c *CommandExecution) resolve(ctx context.Context, env *Env, wf *Workflow) (*DataModel, error) {
	req := CommandRequest{Params: make(map[string]any, len(c.parameters))}

	for _, cp := range c.contexts {
		switch p := cp.(type) {
		case ModelParameter:
			model, err := wf.ModelForID(ctx, env, p.Value)
			if err != nil {
				return nil, err
			}
			req.ModelContext = model
		case WindowParameter:
			model, err := wf.ModelForID(ctx, env, p.Value)
			if err != nil {
				return nil, err
			}
			req.WindowContext = model
		default:
			return nil, fmt.Errorf("context parameter %q must reference a model or window", cp.ParamName())
		}
	}

	for _, cp := range c.parameters {
		switch p := cp.(type) {
		case UserParameter:
			req.Params[p.Name] = p.Value
		case ModelParameter:
			sub, err := wf.Filter(p.Value)
			if err != nil {
				return nil, err
			}
			model, err := sub.ModelForID(ctx, env, p.Value)
			if err != nil {
				return nil, err
			}
			req.Params[p.Name] = model
		case ListOfModelParameter:
			models := make([]*DataModel, 0, len(p.Value))
			for _, id := range p.Value {
				sub, err := wf.Filter(id)
				if err != nil {
					return nil, err
				}
				model, err := sub.ModelForID(ctx, env, id)
				if err != nil {
					return nil, err
				}
				models = append(models, model)
			}
			req.Params[p.Name] = models
		default:
			return nil, fmt.Errorf("unknown parameter type %q for %q", cp.ParamType(), cp.ParamName())
		}
	}

	result, err := env.Commands.Exec(ctx, c.commandID, req)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", c.commandID, err)
	}
	if result == nil {
		return nil, fmt.Errorf("command %q: %w", c.commandID, ErrCommandResultType)
	}
	return result, nil
}

// UserModification describes that the output of another node was hand-edited
// by the user. The edit itself is not replayed: materializing this step
// returns the original node's model unchanged. Patch optionally carries an
// informational unified diff of the edit when the value was text.
type UserModification struct {
	stepBase
	original uuid.UUID
	patch    string
}

// NewUserModification creates a modification marker for the given node.
func NewUserModification(original uuid.UUID, patch string) *UserModification {
	return &UserModification{stepBase: newStepBase(), original: original, patch: patch}
}

// Original returns the id of the modified node.
func (u *UserModification) Original() uuid.UUID { return u.original }

// Patch returns the recorded text diff, or "" when none was captured.
func (u *UserModification) Patch() string { return u.patch }

func (*UserModification) Type() string { return TypeUserModification }

func (u *UserModification) Parents() []uuid.UUID { return []uuid.UUID{u.original} }

func (u *UserModification) resolve(ctx context.Context, env *Env, wf *Workflow) (*DataModel, error) {
	if _, ok := wf.indexOf(u.original); !ok {
		return nil, fmt.Errorf("modified node %s: %w", u.original, ErrDanglingReference)
	}
	// The modification is provenance only; the parent's model is returned as is.
	return wf.ModelForID(ctx, env, u.original)
}
