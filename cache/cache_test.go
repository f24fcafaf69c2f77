package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourcesReuseVsReplace(t *testing.T) {
	require := require.New(t)

	c := NewResources()
	require.False(c.Has("res://a.res"))

	first := c.Put("res://a.res", "first", false)
	require.Equal("first", first)
	require.True(c.Has("res://a.res"))

	// Reuse keeps the existing entry.
	kept := c.Put("res://a.res", "second", false)
	require.Equal("first", kept)
	require.Equal("first", c.Get("res://a.res"))

	// Replace overwrites it.
	replaced := c.Put("res://a.res", "second", true)
	require.Equal("second", replaced)
	require.Equal("second", c.Get("res://a.res"))

	c.Remove("res://a.res")
	require.False(c.Has("res://a.res"))
}

func TestUIDRegistry(t *testing.T) {
	require := require.New(t)

	u := NewUIDs()
	require.False(u.Has(7))

	u.Register(7, "res://thing.tscn")
	require.True(u.Has(7))
	p, ok := u.Path(7)
	require.True(ok)
	require.Equal("res://thing.tscn", p)

	// The invalid id is never registered.
	u.Register(InvalidUID, "res://nope.tscn")
	require.False(u.Has(InvalidUID))
}

func TestScriptKeySaveRestore(t *testing.T) {
	require := require.New(t)

	var outer, inner [32]byte
	outer[0] = 1
	inner[0] = 2

	SetScriptKey(outer)
	defer ClearScriptKey()

	err := WithScriptKey(inner, func() error {
		k, ok := ScriptKey()
		require.True(ok)
		require.Equal(inner, k)
		return nil
	})
	require.NoError(err)

	k, ok := ScriptKey()
	require.True(ok)
	require.Equal(outer, k)
}

func TestScriptKeyRestoredOnError(t *testing.T) {
	require := require.New(t)

	ClearScriptKey()
	var key [32]byte
	key[5] = 9

	_ = WithScriptKey(key, func() error {
		panicErr := func() error { return errTest }
		return panicErr()
	})

	_, ok := ScriptKey()
	require.False(ok)
}

var errTest = errorString("boom")

type errorString string

func (e errorString) Error() string { return string(e) }
