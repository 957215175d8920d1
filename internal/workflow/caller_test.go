package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readThenConvert(t *testing.T) (*Workflow, *LocalReaderMethod) {
	t.Helper()
	read := NewLocalReaderMethod([]string{"table.csv"}, "")
	convert := NewCommandExecution("table-to-text", nil,
		[]CommandParameter{ModelParameter{Name: "model", Value: read.ID(), ModelType: "table"}})
	return New(read, convert), read
}

func TestCaller_ParametrizeReader(t *testing.T) {
	wf, read := readThenConvert(t)

	t.Run("auto argument name", func(t *testing.T) {
		caller := NewCaller(wf)
		r, err := caller.ParametrizeReader(read.ID(), "", "")
		require.NoError(t, err)
		assert.Equal(t, "path_0", r.ArgName())
	})

	t.Run("duplicate explicit name", func(t *testing.T) {
		caller := NewCaller(wf)
		_, err := caller.ParametrizeReader(read.ID(), "input", "")
		require.NoError(t, err)
		_, err = caller.ParametrizeReader(read.ID(), "input", "")
		require.ErrorIs(t, err, ErrDuplicateArgument)
	})

	t.Run("unknown step", func(t *testing.T) {
		caller := NewCaller(wf)
		other := NewLocalReaderMethod([]string{"x.txt"}, "")
		_, err := caller.ParametrizeReader(other.ID(), "", "")
		require.ErrorIs(t, err, ErrStepNotFound)
	})

	t.Run("non-reader step", func(t *testing.T) {
		caller := NewCaller(wf)
		head, err := wf.LastID()
		require.NoError(t, err)
		_, err = caller.ParametrizeReader(head, "", "")
		require.ErrorIs(t, err, ErrInvalidStepType)
	})
}

func TestCaller_Annotations(t *testing.T) {
	wf, read := readThenConvert(t)
	caller := NewCaller(wf)
	_, err := caller.ParametrizeReader(read.ID(), "input", "")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"input": "Path", "return": "DataModel"}, caller.Annotations())
}

func TestCaller_Call_ComputesReplacedTail(t *testing.T) {
	env, readers, commands := testEnv()
	readers.add("table.csv", "original", "table")
	readers.add("other.csv", "replacement", "table")
	commands.add("table-to-text", func(req CommandRequest) (*DataModel, error) {
		model := req.Params["model"].(*DataModel)
		return &DataModel{Value: "text:" + fmt.Sprint(model.Value), Type: "text"}, nil
	})

	wf, read := readThenConvert(t)
	caller := NewCaller(wf)
	_, err := caller.ParametrizeReader(read.ID(), "input", "")
	require.NoError(t, err)

	model, err := caller.Call(context.Background(), env, map[string]any{"input": "other.csv"})
	require.NoError(t, err)
	assert.Equal(t, "text:replacement", model.Value)

	// The captured workflow still reads its original path.
	orig, err := wf.GetModel(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "text:original", orig.Value)
	assert.Equal(t, "table.csv", read.Paths()[0])
}

func TestCaller_IdentitySharingAcrossCalls(t *testing.T) {
	wf, read := readThenConvert(t)
	caller := NewCaller(wf)
	_, err := caller.ParametrizeReader(read.ID(), "input", "")
	require.NoError(t, err)

	first, err := caller.Build(map[string]any{"input": "one.csv"})
	require.NoError(t, err)
	second, err := caller.Build(map[string]any{"input": "two.csv"})
	require.NoError(t, err)

	// Non-replaced steps are the same objects with the same ids.
	assert.Same(t, wf.At(1), first.At(1))
	assert.Same(t, wf.At(1), second.At(1))

	// The replaced step is a distinct execution event each call.
	assert.NotEqual(t, read.ID(), first.At(0).ID())
	assert.NotEqual(t, read.ID(), second.At(0).ID())
	assert.NotEqual(t, first.At(0).ID(), second.At(0).ID())
}

func TestCaller_Build_ArgumentValidation(t *testing.T) {
	wf, read := readThenConvert(t)
	caller := NewCaller(wf)
	_, err := caller.ParametrizeReader(read.ID(), "input", "")
	require.NoError(t, err)

	_, err = caller.Build(map[string]any{})
	require.Error(t, err)

	_, err = caller.Build(map[string]any{"input": "a.csv", "bogus": 1})
	require.Error(t, err)

	_, err = caller.Build(map[string]any{"input": 42})
	require.Error(t, err)
}

func TestCaller_ParametrizeRemoteReader(t *testing.T) {
	remote := NewRemoteReaderMethod("example.com", "alice", "/data/in.csv", "", true)
	convert := NewCommandExecution("noop", nil,
		[]CommandParameter{ModelParameter{Name: "model", Value: remote.ID(), ModelType: "table"}})
	wf := New(remote, convert)

	caller := NewCaller(wf)
	r, err := caller.ParametrizeRemoteReader(remote.ID(), "remote_path", "")
	require.NoError(t, err)
	assert.Equal(t, "str", r.ArgType())

	built, err := caller.Build(map[string]any{"remote_path": "/data/other.csv"})
	require.NoError(t, err)

	replaced, ok := built.At(0).(*RemoteReaderMethod)
	require.True(t, ok)
	// Transport fields are carried over from the captured step.
	assert.Equal(t, "example.com", replaced.Host())
	assert.Equal(t, "alice", replaced.Username())
	assert.True(t, replaced.WSL())
	assert.Equal(t, "/data/other.csv", replaced.Path())
	assert.NotEqual(t, remote.ID(), replaced.ID())
}
