package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Wire tags for the step variants. These are the schema-stable discriminants
// used by the session format; never reorder or rename them.
const (
	TypeProgrammatic     = "programmatic"
	TypeLocalReader      = "local-reader"
	TypeRemoteReader     = "remote-reader"
	TypeCommand          = "command"
	TypeUserModification = "user-modification"
)

// Step is a single node of a provenance graph. Each step carries a unique id
// generated once at creation and stable across serialization round-trips, and
// declares its parent node ids, which define the DAG edges.
//
// Steps are immutable once appended to a workflow. The interface is sealed:
// only the variants in this package implement it.
type Step interface {
	// ID returns the unique identifier of this node.
	ID() uuid.UUID

	// Time returns the creation time, informational only.
	Time() time.Time

	// Type returns the wire tag of this variant.
	Type() string

	// Parents returns the ids of the nodes this step depends on.
	Parents() []uuid.UUID

	// resolve materializes the step's output. It may recursively resolve
	// parents through wf but must not mutate the step list.
	resolve(ctx context.Context, env *Env, wf *Workflow) (*DataModel, error)
}

// stepBase carries the identity fields shared by every variant.
type stepBase struct {
	id uuid.UUID
	at time.Time
}

func newStepBase() stepBase {
	return stepBase{id: uuid.New(), at: time.Now()}
}

// restoredStepBase reconstructs identity from serialized form.
// Ids are never regenerated on load.
func restoredStepBase(id uuid.UUID, at time.Time) stepBase {
	return stepBase{id: id, at: at}
}

func (b stepBase) ID() uuid.UUID   { return b.id }
func (b stepBase) Time() time.Time { return b.at }
