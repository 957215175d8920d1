// Package model holds the shared value types that the workspace, session and
// provider layers exchange: window geometry and state, anchors, and model type
// helpers.
package model

import (
	"fmt"
	"strings"

	"github.com/himena-app/himena/internal/workflow"
)

// DataModel is the envelope carried by every sub-window. It is defined next to
// the provenance graph it references; this alias keeps call sites short.
type DataModel = workflow.DataModel

// WindowRect is a window's position and size in workspace coordinates.
type WindowRect struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Size returns the rect's width and height.
func (r WindowRect) Size() (int, int) { return r.Width, r.Height }

// Moved returns a copy shifted by (dx, dy).
func (r WindowRect) Moved(dx, dy int) WindowRect {
	r.Left += dx
	r.Top += dy
	return r
}

func (r WindowRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// WindowState describes how a sub-window is displayed.
type WindowState string

const (
	StateNormal     WindowState = "normal"
	StateMinimized  WindowState = "min"
	StateMaximized  WindowState = "max"
	StateFullScreen WindowState = "full"
)

// ParseWindowState validates a serialized window state.
func ParseWindowState(s string) (WindowState, error) {
	switch WindowState(s) {
	case StateNormal, StateMinimized, StateMaximized, StateFullScreen:
		return WindowState(s), nil
	case "":
		return StateNormal, nil
	}
	return "", fmt.Errorf("unknown window state %q", s)
}

// Anchor describes how a window tracks workspace resizes. Only the tag is
// interpreted here; unknown anchor payloads round-trip untouched.
type Anchor struct {
	Type string `yaml:"type"`
}

// NoAnchor is the default anchor for free-floating windows.
func NoAnchor() Anchor { return Anchor{Type: "no-anchor"} }

// IsSubtype reports whether model type a is b or a dot-separated descendant of
// it: "text.plain" is a subtype of "text", "text" is not a subtype of
// "text.plain", and "table" is unrelated to "tab".
func IsSubtype(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+".")
}

// TypeDepth counts the dot-separated segments of a model type. Used to prefer
// the most specific reader when several claim a file.
func TypeDepth(modelType string) int {
	if modelType == "" {
		return 0
	}
	return strings.Count(modelType, ".") + 1
}
