package cleanup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func recorder(log *[]string, name string) Func {
	return func() error {
		*log = append(*log, name)
		return nil
	}
}

func TestChainRunAllNewestFirst(t *testing.T) {
	var log []string
	c := New()
	c.Push("a", recorder(&log, "a"))
	c.Push("b", recorder(&log, "b"))
	c.Push("c", recorder(&log, "c"))
	require.Equal(t, 3, c.Len())
	require.NoError(t, c.RunAll())
	require.Equal(t, []string{"c", "b", "a"}, log)
	require.Equal(t, 0, c.Len())
}

func TestChainDoToLevel(t *testing.T) {
	var log []string
	c := New()
	c.Push("a", recorder(&log, "a"))
	old := c.Push("b", recorder(&log, "b"))
	c.Push("c", recorder(&log, "c"))
	require.NoError(t, c.Do(old))
	require.Equal(t, []string{"c", "b"}, log)
	require.Equal(t, 1, c.Len())
}

func TestChainDiscard(t *testing.T) {
	var log []string
	c := New()
	c.Push("a", recorder(&log, "a"))
	old := c.Push("b", recorder(&log, "b"))
	c.Discard(old)
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.RunAll())
	require.Equal(t, []string{"a"}, log)
}

func TestChainCollectsErrors(t *testing.T) {
	var log []string
	c := New()
	c.Push("first", func() error { return errors.New("first failed") })
	c.Push("ok", recorder(&log, "ok"))
	c.Push("second", func() error { return errors.New("second failed") })
	err := c.RunAll()
	require.Error(t, err)
	require.Contains(t, err.Error(), `cleanup "second": second failed`)
	require.Contains(t, err.Error(), `cleanup "first": first failed`)
	require.Equal(t, []string{"ok"}, log)
	require.Equal(t, 0, c.Len())
}

func TestChainSnapshotHidesOuterScope(t *testing.T) {
	var log []string
	c := New()
	c.Push("outer", recorder(&log, "outer"))

	m := c.Snapshot()
	require.Equal(t, 0, c.Len())
	c.Push("inner", recorder(&log, "inner"))
	require.NoError(t, c.RunAll())
	require.Equal(t, []string{"inner"}, log)

	c.Restore(m)
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.RunAll())
	require.Equal(t, []string{"inner", "outer"}, log)
}

func TestChainRestoreDropsPending(t *testing.T) {
	var log []string
	c := New()
	c.Push("outer", recorder(&log, "outer"))
	m := c.Snapshot()
	c.Push("leaked", recorder(&log, "leaked"))
	c.Restore(m)
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.RunAll())
	require.Equal(t, []string{"outer"}, log)
}

func TestChainDiscardDoesNotCrossScope(t *testing.T) {
	var log []string
	c := New()
	c.Push("outer", recorder(&log, "outer"))
	c.Snapshot()
	c.Discard(0)
	c.Do(0)
	require.Empty(t, log)
}

func TestChainNestedSnapshots(t *testing.T) {
	c := New()
	c.Push("a", nil)
	m1 := c.Snapshot()
	c.Push("b", nil)
	m2 := c.Snapshot()
	c.Push("c", nil)
	require.Equal(t, 1, c.Len())
	c.Restore(m2)
	require.Equal(t, 1, c.Len())
	c.Restore(m1)
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.RunAll())
	require.Equal(t, 0, c.Len())
}
