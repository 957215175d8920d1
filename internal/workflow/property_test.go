package workflow

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"
)

// drawWorkflow generates a random valid workflow: readers introduce roots,
// commands and modifications reference earlier steps only.
func drawWorkflow(t *rapid.T) *Workflow {
	n := rapid.IntRange(1, 12).Draw(t, "steps")
	steps := make([]Step, 0, n)
	for i := 0; i < n; i++ {
		kind := rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("kind_%d", i))
		if len(steps) == 0 {
			kind = 0
		}
		switch kind {
		case 0:
			path := rapid.StringMatching(`[a-z]{1,8}\.(csv|txt)`).Draw(t, fmt.Sprintf("path_%d", i))
			steps = append(steps, NewLocalReaderMethod([]string{path}, ""))
		case 1:
			parent := rapid.SampledFrom(steps).Draw(t, fmt.Sprintf("parent_%d", i))
			steps = append(steps, NewCommandExecution(
				rapid.StringMatching(`[a-z-]{1,12}`).Draw(t, fmt.Sprintf("cmd_%d", i)),
				nil,
				[]CommandParameter{ModelParameter{Name: "model", Value: parent.ID()}}))
		case 2:
			parent := rapid.SampledFrom(steps).Draw(t, fmt.Sprintf("orig_%d", i))
			steps = append(steps, NewUserModification(parent.ID(), ""))
		}
	}
	return New(steps...)
}

func stepIDs(wf *Workflow) []uuid.UUID {
	ids := make([]uuid.UUID, wf.Len())
	for i := 0; i < wf.Len(); i++ {
		ids[i] = wf.At(i).ID()
	}
	return ids
}

func TestProperty_ConcatWithSelfIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wf := drawWorkflow(t)
		merged := Concat([]*Workflow{wf, wf})
		require.Equal(t, stepIDs(wf), stepIDs(merged))
	})
}

func TestProperty_ConcatNeverDuplicates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w1 := drawWorkflow(t)
		w2 := drawWorkflow(t)
		merged := Concat([]*Workflow{w1, w2, w1})

		seen := make(map[uuid.UUID]struct{})
		for _, id := range stepIDs(merged) {
			_, dup := seen[id]
			require.False(t, dup, "id %s occurs twice", id)
			seen[id] = struct{}{}
		}
		require.Len(t, seen, w1.Len()+w2.Len())
	})
}

func TestProperty_FilterPreservesRelativeOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wf := drawWorkflow(t)
		target := rapid.SampledFrom(wf.Steps()).Draw(t, "target")

		sub, err := wf.Filter(target.ID())
		require.NoError(t, err)

		// The filtered list is a subsequence of the original ending at the
		// target.
		require.Equal(t, target.ID(), sub.At(sub.Len()-1).ID())
		index := wf.IDToIndexMap()
		prev := -1
		for _, id := range stepIDs(sub) {
			idx, ok := index[id]
			require.True(t, ok)
			require.Greater(t, idx, prev)
			prev = idx
		}
	})
}

func TestProperty_FilterIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wf := drawWorkflow(t)
		target := rapid.SampledFrom(wf.Steps()).Draw(t, "target")

		once, err := wf.Filter(target.ID())
		require.NoError(t, err)
		twice, err := once.Filter(target.ID())
		require.NoError(t, err)
		require.Equal(t, stepIDs(once), stepIDs(twice))
	})
}

func TestProperty_CodecRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wf := drawWorkflow(t)

		data, err := yaml.Marshal(wf)
		require.NoError(t, err)
		var out Workflow
		require.NoError(t, yaml.Unmarshal(data, &out))

		require.Equal(t, stepIDs(wf), stepIDs(&out))
		for i := 0; i < wf.Len(); i++ {
			require.Equal(t, wf.At(i).Type(), out.At(i).Type())
			require.Equal(t, wf.At(i).Parents(), out.At(i).Parents())
		}
	})
}
