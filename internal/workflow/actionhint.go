package workflow

import "strings"

// ActionMatcher determines whether a workflow step satisfies a condition.
type ActionMatcher interface {
	// ModelType is the model type of the output window this matcher applies to.
	ModelType() string

	// Match reports whether the matcher applies to the given model type and
	// producing step.
	Match(modelType string, step Step) bool
}

// CommandMatcher matches steps produced by a specific command with an exact
// output model type.
type CommandMatcher struct {
	Type      string
	CommandID string
}

func (m CommandMatcher) ModelType() string { return m.Type }

func (m CommandMatcher) Match(modelType string, step Step) bool {
	cmd, ok := step.(*CommandExecution)
	return ok && modelType == m.Type && cmd.CommandID() == m.CommandID
}

// Suggestion is a "what can I do next" entry surfaced to the user.
type Suggestion interface {
	// SuggestionCommandID returns the command to execute when chosen.
	SuggestionCommandID() string
}

// CommandSuggestion suggests executing a command.
type CommandSuggestion struct {
	CommandID string
}

func (s CommandSuggestion) SuggestionCommandID() string { return s.CommandID }

// ActionHint pairs a matcher with its suggested next action.
type ActionHint struct {
	Matcher    ActionMatcher
	Suggestion Suggestion
}

// ActionHintRegistry maps (resulting model type, triggering step) to suggested
// next commands. Hints are bucketed by the model type's top-level segment for
// cheap narrowing. Process-lifetime only; populated at plugin registration.
type ActionHintRegistry struct {
	roughMap map[string][]ActionHint
}

// NewActionHintRegistry creates an empty registry.
func NewActionHintRegistry() *ActionHintRegistry {
	return &ActionHintRegistry{roughMap: make(map[string][]ActionHint)}
}

// AddHint stores a matcher/suggestion pair under the matcher's type bucket.
func (r *ActionHintRegistry) AddHint(matcher ActionMatcher, suggestion Suggestion) {
	ancestor, _, _ := strings.Cut(matcher.ModelType(), ".")
	r.roughMap[ancestor] = append(r.roughMap[ancestor], ActionHint{Matcher: matcher, Suggestion: suggestion})
}

// All returns every hint in the registry.
func (r *ActionHintRegistry) All() []ActionHint {
	var hints []ActionHint
	for _, bucket := range r.roughMap {
		hints = append(hints, bucket...)
	}
	return hints
}

// IterSuggestions returns the suggestions whose matchers accept the given
// model type and producing step.
func (r *ActionHintRegistry) IterSuggestions(modelType string, step Step) []Suggestion {
	var suggestions []Suggestion
	for ancestor, bucket := range r.roughMap {
		if !strings.HasPrefix(modelType, ancestor) {
			continue
		}
		for _, hint := range bucket {
			if hint.Matcher.Match(modelType, step) {
				suggestions = append(suggestions, hint.Suggestion)
			}
		}
	}
	return suggestions
}

// MatcherBuilder is a fluent interface for registering suggestions under one
// matcher.
//
//	reg.WhenCommandExecuted("table", "sort-table").
//		AddCommandSuggestion("scatter-plot").
//		AddCommandSuggestion("line-plot")
type MatcherBuilder struct {
	registry *ActionHintRegistry
	matcher  ActionMatcher
}

// WhenCommandExecuted starts a builder for hints triggered by commandID
// producing modelType.
func (r *ActionHintRegistry) WhenCommandExecuted(modelType, commandID string) *MatcherBuilder {
	return &MatcherBuilder{
		registry: r,
		matcher:  CommandMatcher{Type: modelType, CommandID: commandID},
	}
}

// AddCommandSuggestion registers a command suggestion for the matcher.
func (b *MatcherBuilder) AddCommandSuggestion(commandID string) *MatcherBuilder {
	b.registry.AddHint(b.matcher, CommandSuggestion{CommandID: commandID})
	return b
}
