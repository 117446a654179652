package cache

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refresher/internal/model"
)

func TestEvictsOldestInsertedRegardlessOfReads(t *testing.T) {
	t.Parallel()
	const n = 5
	c := New(n)
	for i := 0; i < n; i++ {
		c.Set("k"+strconv.Itoa(i), Entry{Post: &model.PostRecord{ID: strconv.Itoa(i)}})
	}
	// Reading the oldest key must not protect it.
	for i := 0; i < 10; i++ {
		_, ok := c.Get("k0")
		require.True(t, ok)
	}
	c.Set("k5", Entry{Post: &model.PostRecord{ID: "5"}})

	assert.Equal(t, n, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest inserted key should be evicted")
	for i := 1; i <= n; i++ {
		_, ok := c.Get("k" + strconv.Itoa(i))
		assert.True(t, ok, "k%d", i)
	}
	assert.Equal(t, []string{"k1", "k2", "k3", "k4", "k5"}, c.Keys())
}

func TestDefaultCapacity(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.Capacity())
	for i := 0; i < DefaultCapacity+10; i++ {
		c.Set(strconv.Itoa(i), Entry{Comment: &model.CommentThread{}})
	}
	assert.Equal(t, DefaultCapacity, c.Len())
}

func TestMergeNeverErasesPresentFields(t *testing.T) {
	c := New(3)
	p1 := &model.PostRecord{ID: "1"}
	c1 := &model.CommentThread{TotalCount: 4}

	c.Set("g1", Entry{Post: p1})
	c.Set("g1", Entry{Comment: c1})
	got, ok := c.Get("g1")
	require.True(t, ok)
	assert.Same(t, p1, got.Post)
	assert.Same(t, c1, got.Comment)

	c.Set("g1", Entry{})
	got, _ = c.Get("g1")
	assert.Same(t, p1, got.Post)
	assert.Same(t, c1, got.Comment)

	p2 := &model.PostRecord{ID: "1"}
	c.Set("g1", Entry{Post: p2})
	got, _ = c.Get("g1")
	assert.Same(t, p2, got.Post)
	assert.Same(t, c1, got.Comment)
	assert.Equal(t, 1, c.Len())
}

func TestRewritingKeyDoesNotMoveIt(t *testing.T) {
	c := New(2)
	c.Set("a", Entry{Post: &model.PostRecord{}})
	c.Set("b", Entry{Post: &model.PostRecord{}})
	c.Set("a", Entry{Comment: &model.CommentThread{}})
	c.Set("c", Entry{Post: &model.PostRecord{}})

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestDelete(t *testing.T) {
	c := New(2)
	c.Set("a", Entry{Post: &model.PostRecord{}})
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Keys())
}
