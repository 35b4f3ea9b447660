package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFoldDeterminism(t *testing.T) {
	s := newTestStore(t)

	state, err := s.Apply("d", Assign("x", 1))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1)}, state)

	state, err = s.Apply("d", Update{Item: "x", Op: OpAdd, Value: 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(2)}, state)

	current, err := s.Current("d")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(2)}, current)

	// Two events in call order even if their timestamps coincide:
	// the insertion sequence breaks the tie.
	events, err := s.Events("d")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, OpReplace, events[0].Op)
	assert.Equal(t, OpAdd, events[1].Op)
	assert.Less(t, events[0].Seq, events[1].Seq)
}

func TestApplyMultipleItemsShareTimestamp(t *testing.T) {
	s := newTestStore(t)

	state, err := s.Apply("d",
		Assign("int_item", 1),
		Assign("str_item", "Hello"),
		Assign("bool_item", false),
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"int_item":  float64(1),
		"str_item":  "Hello",
		"bool_item": false,
	}, state)

	events, err := s.Events("d")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, events[0].Timestamp, events[1].Timestamp)
	assert.Equal(t, events[1].Timestamp, events[2].Timestamp)
	assert.Equal(t, "int_item", events[0].Item)
	assert.Equal(t, "str_item", events[1].Item)
	assert.Equal(t, "bool_item", events[2].Item)
}

func TestApplyOperators(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Apply("d", Assign("n", 10), Assign("b", false), Assign("s", "Ho"))
	require.NoError(t, err)

	state, err := s.Apply("d",
		Update{Item: "n", Op: OpSub, Value: 4},
		Update{Item: "b", Op: OpNot},
		Update{Item: "s", Op: OpConcat, Value: " Ho"},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(6), "b": true, "s": "Ho Ho"}, state)

	state, err = s.Apply("d", Update{Item: "n", Op: OpNeg})
	require.NoError(t, err)
	assert.Equal(t, float64(-6), state["n"])

	state, err = s.Apply("d", Update{Item: "b", Op: OpDelete})
	require.NoError(t, err)
	_, present := state["b"]
	assert.False(t, present)

	// Deleting an absent item is a no-op, not an error.
	state, err = s.Apply("d", Update{Item: "ghost", Op: OpDelete})
	require.NoError(t, err)
	_, present = state["ghost"]
	assert.False(t, present)
}

func TestApplyMissingItemDefaults(t *testing.T) {
	s := newTestStore(t)

	// A binary combine on a never-set item starts from the operator's
	// identity, a unary transform from its zero value.
	state, err := s.Apply("d",
		Update{Item: "counter", Op: OpAdd, Value: 5},
		Update{Item: "flag", Op: OpNot},
		Update{Item: "text", Op: OpConcat, Value: "tail"},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"counter": float64(5),
		"flag":    true,
		"text":    "tail",
	}, state)
}

func TestApplyInvalidOperator(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Apply("d", Update{Item: "x", Op: OpKind("exec"), Value: 1})
	assert.ErrorIs(t, err, ErrInvalidOperator)

	_, err = s.Apply("d", Update{Item: "x", Op: OpNot, Value: true})
	assert.ErrorIs(t, err, ErrInvalidOperator)

	// Operand type mismatches surface on the fold.
	_, err = s.Apply("d", Assign("x", "text"))
	require.NoError(t, err)
	_, err = s.Apply("d", Update{Item: "x", Op: OpAdd, Value: 1})
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestApplyEmptyUpdates(t *testing.T) {
	s := newTestStore(t)

	state, err := s.Apply("unknown")
	require.NoError(t, err)
	assert.Nil(t, state)

	_, err = s.Apply("d", Assign("x", 1))
	require.NoError(t, err)

	state, err = s.Apply("d")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1)}, state)
}

func TestPast(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Past("unknown", 1000)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ApplyAt("d", 1000, Assign("x", 1), Assign("y", "old"))
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 2000, Assign("x", 2), Update{Item: "y", Op: OpDelete})
	require.NoError(t, err)

	past, err := s.Past("d", 1500)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1), "y": "old"}, past)

	past, err = s.Past("d", 500)
	require.NoError(t, err)
	assert.Empty(t, past)

	current, err := s.Current("d")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(2)}, current)
}

func TestApplyAtConflictAndBackdating(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ApplyAt("d", 2000, Assign("x", "recent"))
	require.NoError(t, err)

	// Backdating an existing item does not alter the current state.
	state, err := s.ApplyAt("d", 1000, Assign("x", "too old"))
	require.NoError(t, err)
	assert.Equal(t, "recent", state["x"])

	// The same timestamp cannot be written twice.
	_, err = s.ApplyAt("d", 1000, Assign("x", "again"))
	assert.ErrorIs(t, err, ErrConflict)

	// Backdating a new item does alter the current state.
	state, err = s.ApplyAt("d", 1001, Assign("y", "added"))
	require.NoError(t, err)
	assert.Equal(t, "added", state["y"])

	// The log stays ordered by timestamp despite insertion order.
	events, err := s.Events("d")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(1000), events[0].Timestamp)
	assert.Equal(t, int64(1001), events[1].Timestamp)
	assert.Equal(t, int64(2000), events[2].Timestamp)
}

func TestEventsRange(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ApplyAt("d", 1000, Assign("x", 1))
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 2000, Update{Item: "x", Op: OpAdd, Value: 1})
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 3000, Update{Item: "x", Op: OpNot})
	require.NoError(t, err)

	events, err := s.EventsRange("d", 1500, 2500)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, OpAdd, events[0].Op)

	events, err = s.EventsRange("d", 0, 4000, OpNot)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(3000), events[0].Timestamp)

	_, err = s.Events("unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPruneDryRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ApplyAt("d", 1000, Assign("x", 1))
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 2000, Assign("x", 2))
	require.NoError(t, err)

	pruned, err := s.Prune("d", false)
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, int64(2000), pruned[0].Timestamp)

	// The dry run leaves storage untouched.
	events, err := s.Events("d")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestPrunePreservesCurrent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ApplyAt("d", 1000, Assign("x", 1), Assign("gone", "bye"))
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 2000, Assign("x", 5), Update{Item: "gone", Op: OpDelete})
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 3000, Update{Item: "x", Op: OpAdd, Value: 2}, Update{Item: "c", Op: OpAdd, Value: 1})
	require.NoError(t, err)

	before, err := s.Current("d")
	require.NoError(t, err)

	pruned, err := s.Prune("d", true)
	require.NoError(t, err)

	after, err := s.Current("d")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	events, err := s.Events("d")
	require.NoError(t, err)
	assert.Len(t, events, len(pruned))
	// x collapses to its last replace plus the combine chain; gone
	// disappears entirely; the replace-free combine on c survives.
	assert.Len(t, pruned, 3)
}

func TestPruneRemovesEmptiedLog(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ApplyAt("d", 1000, Assign("x", 1))
	require.NoError(t, err)
	_, err = s.ApplyAt("d", 2000, Update{Item: "x", Op: OpDelete})
	require.NoError(t, err)

	pruned, err := s.Prune("d", true)
	require.NoError(t, err)
	assert.Empty(t, pruned)

	_, err = s.Current("d")
	assert.ErrorIs(t, err, ErrNotFound)

	sources, err := s.EventSources()
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = s.Prune("unknown", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventSources(t *testing.T) {
	s := newTestStore(t)

	sources, err := s.EventSources()
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = s.Apply("beta", Assign("x", 1))
	require.NoError(t, err)
	_, err = s.Apply("alpha", Assign("x", 1))
	require.NoError(t, err)

	sources, err = s.EventSources()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, sources)
}
