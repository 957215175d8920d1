package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Serialized step representation: each step is a mapping with a "type"
// discriminant; a workflow is {"steps": [...]}. Round-trips preserve ids
// exactly so that cross-references between steps and external indexes stay
// valid.

const timeFormat = time.RFC3339Nano

type baseDoc struct {
	Type     string `yaml:"type"`
	ID       string `yaml:"id"`
	Datetime string `yaml:"datetime"`
}

func (d baseDoc) restore() (stepBase, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return stepBase{}, fmt.Errorf("step id %q: %w", d.ID, err)
	}
	at, err := time.Parse(timeFormat, d.Datetime)
	if err != nil {
		return stepBase{}, fmt.Errorf("step %s datetime %q: %w", d.ID, d.Datetime, err)
	}
	return restoredStepBase(id, at), nil
}

func docBase(step Step) baseDoc {
	return baseDoc{
		Type:     step.Type(),
		ID:       step.ID().String(),
		Datetime: step.Time().Format(timeFormat),
	}
}

type programmaticDoc struct {
	baseDoc `yaml:",inline"`
}

type localReaderDoc struct {
	baseDoc `yaml:",inline"`
	Path    yaml.Node `yaml:"path"`
	Plugin  string    `yaml:"plugin,omitempty"`
}

type remoteReaderDoc struct {
	baseDoc  `yaml:",inline"`
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Path     string `yaml:"path"`
	Plugin   string `yaml:"plugin,omitempty"`
	WSL      bool   `yaml:"wsl,omitempty"`
}

type paramDoc struct {
	Type      string    `yaml:"type"`
	Name      string    `yaml:"name"`
	Value     yaml.Node `yaml:"value"`
	ModelType string    `yaml:"model_type,omitempty"`
}

type commandDoc struct {
	baseDoc    `yaml:",inline"`
	CommandID  string     `yaml:"command_id"`
	Contexts   []paramDoc `yaml:"contexts,omitempty"`
	Parameters []paramDoc `yaml:"parameters,omitempty"`
}

type modificationDoc struct {
	baseDoc  `yaml:",inline"`
	Original string `yaml:"original"`
	Patch    string `yaml:"patch,omitempty"`
}

func encodeParam(p CommandParameter) (paramDoc, error) {
	doc := paramDoc{Type: p.ParamType(), Name: p.ParamName()}
	var value any
	switch v := p.(type) {
	case UserParameter:
		value = v.Value
	case ModelParameter:
		value = v.Value.String()
		doc.ModelType = v.ModelType
	case WindowParameter:
		value = v.Value.String()
		doc.ModelType = v.ModelType
	case ListOfModelParameter:
		ids := make([]string, len(v.Value))
		for i, id := range v.Value {
			ids[i] = id.String()
		}
		value = ids
	default:
		return paramDoc{}, fmt.Errorf("unknown parameter variant %T", p)
	}
	if err := doc.Value.Encode(value); err != nil {
		return paramDoc{}, fmt.Errorf("encoding parameter %q: %w", p.ParamName(), err)
	}
	return doc, nil
}

func decodeParam(doc paramDoc) (CommandParameter, error) {
	switch doc.Type {
	case ParamUser:
		var value any
		if err := doc.Value.Decode(&value); err != nil {
			return nil, fmt.Errorf("parameter %q value: %w", doc.Name, err)
		}
		return UserParameter{Name: doc.Name, Value: value}, nil
	case ParamModel, ParamWindow:
		var raw string
		if err := doc.Value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parameter %q value: %w", doc.Name, err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q id %q: %w", doc.Name, raw, err)
		}
		if doc.Type == ParamWindow {
			return WindowParameter{Name: doc.Name, Value: id, ModelType: doc.ModelType}, nil
		}
		return ModelParameter{Name: doc.Name, Value: id, ModelType: doc.ModelType}, nil
	case ParamList:
		var raw []string
		if err := doc.Value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parameter %q value: %w", doc.Name, err)
		}
		ids := make([]uuid.UUID, len(raw))
		for i, s := range raw {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("parameter %q id %q: %w", doc.Name, s, err)
			}
			ids[i] = id
		}
		return ListOfModelParameter{Name: doc.Name, Value: ids}, nil
	default:
		return nil, fmt.Errorf("unknown parameter type %q", doc.Type)
	}
}

func encodeParams(params []CommandParameter) ([]paramDoc, error) {
	docs := make([]paramDoc, 0, len(params))
	for _, p := range params {
		doc, err := encodeParam(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeParams(docs []paramDoc) ([]CommandParameter, error) {
	params := make([]CommandParameter, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeParam(doc)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// MarshalStep converts a step to its serialized document form.
func MarshalStep(step Step) (any, error) {
	switch s := step.(type) {
	case *ProgrammaticMethod:
		return programmaticDoc{baseDoc: docBase(s)}, nil
	case *LocalReaderMethod:
		doc := localReaderDoc{baseDoc: docBase(s), Plugin: s.Plugin()}
		var value any
		if len(s.Paths()) == 1 {
			value = s.Paths()[0]
		} else {
			value = s.Paths()
		}
		if err := doc.Path.Encode(value); err != nil {
			return nil, fmt.Errorf("encoding path of %s: %w", s.ID(), err)
		}
		return doc, nil
	case *RemoteReaderMethod:
		return remoteReaderDoc{
			baseDoc:  docBase(s),
			Host:     s.Host(),
			Username: s.Username(),
			Path:     s.Path(),
			Plugin:   s.Plugin(),
			WSL:      s.WSL(),
		}, nil
	case *CommandExecution:
		contexts, err := encodeParams(s.Contexts())
		if err != nil {
			return nil, err
		}
		parameters, err := encodeParams(s.Parameters())
		if err != nil {
			return nil, err
		}
		return commandDoc{
			baseDoc:    docBase(s),
			CommandID:  s.CommandID(),
			Contexts:   contexts,
			Parameters: parameters,
		}, nil
	case *UserModification:
		return modificationDoc{
			baseDoc:  docBase(s),
			Original: s.Original().String(),
			Patch:    s.Patch(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown step variant %T", step)
	}
}

// UnmarshalStep reconstructs a step from its serialized document form.
func UnmarshalStep(node *yaml.Node) (Step, error) {
	var probe struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&probe); err != nil {
		return nil, fmt.Errorf("decoding step: %w", err)
	}

	switch probe.Type {
	case TypeProgrammatic:
		var doc programmaticDoc
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		base, err := doc.restore()
		if err != nil {
			return nil, err
		}
		return &ProgrammaticMethod{stepBase: base}, nil

	case TypeLocalReader:
		var doc localReaderDoc
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		base, err := doc.restore()
		if err != nil {
			return nil, err
		}
		var paths []string
		if doc.Path.Kind == yaml.SequenceNode {
			if err := doc.Path.Decode(&paths); err != nil {
				return nil, fmt.Errorf("step %s paths: %w", doc.ID, err)
			}
		} else {
			var single string
			if err := doc.Path.Decode(&single); err != nil {
				return nil, fmt.Errorf("step %s path: %w", doc.ID, err)
			}
			paths = []string{single}
		}
		return &LocalReaderMethod{stepBase: base, paths: paths, plugin: doc.Plugin}, nil

	case TypeRemoteReader:
		var doc remoteReaderDoc
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		base, err := doc.restore()
		if err != nil {
			return nil, err
		}
		return &RemoteReaderMethod{
			stepBase: base,
			host:     doc.Host,
			username: doc.Username,
			path:     doc.Path,
			plugin:   doc.Plugin,
			wsl:      doc.WSL,
		}, nil

	case TypeCommand:
		var doc commandDoc
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		base, err := doc.restore()
		if err != nil {
			return nil, err
		}
		contexts, err := decodeParams(doc.Contexts)
		if err != nil {
			return nil, err
		}
		parameters, err := decodeParams(doc.Parameters)
		if err != nil {
			return nil, err
		}
		return &CommandExecution{
			stepBase:   base,
			commandID:  doc.CommandID,
			contexts:   contexts,
			parameters: parameters,
		}, nil

	case TypeUserModification:
		var doc modificationDoc
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		base, err := doc.restore()
		if err != nil {
			return nil, err
		}
		original, err := uuid.Parse(doc.Original)
		if err != nil {
			return nil, fmt.Errorf("step %s original %q: %w", doc.ID, doc.Original, err)
		}
		return &UserModification{stepBase: base, original: original, patch: doc.Patch}, nil

	default:
		return nil, fmt.Errorf("unknown step type %q", probe.Type)
	}
}

type workflowDoc struct {
	Steps []any `yaml:"steps"`
}

// MarshalYAML serializes the workflow as {"steps": [...]}.
func (w *Workflow) MarshalYAML() (any, error) {
	doc := workflowDoc{Steps: make([]any, 0, len(w.steps))}
	for _, step := range w.steps {
		enc, err := MarshalStep(step)
		if err != nil {
			return nil, err
		}
		doc.Steps = append(doc.Steps, enc)
	}
	return doc, nil
}

// UnmarshalYAML reconstructs the workflow, re-validating that every parent id
// references an earlier step. Corrupt session data is rejected here instead of
// surfacing later as an unresolvable graph.
func (w *Workflow) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		Steps []yaml.Node `yaml:"steps"`
	}
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("decoding workflow: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(doc.Steps))
	steps := make([]Step, 0, len(doc.Steps))
	for i := range doc.Steps {
		step, err := UnmarshalStep(&doc.Steps[i])
		if err != nil {
			return err
		}
		for _, parent := range step.Parents() {
			if _, ok := seen[parent]; !ok {
				return fmt.Errorf("step %s parent %s: %w", step.ID(), parent, ErrDanglingReference)
			}
		}
		seen[step.ID()] = struct{}{}
		steps = append(steps, step)
	}

	*w = *New(steps...)
	return nil
}
