package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitOrderAndArgs(t *testing.T) {
	b := NewBus()
	var got []string
	b.On(RefreshRequest, func(args ...any) { got = append(got, "a:"+args[0].(string)) }, false)
	b.On(RefreshRequest, func(args ...any) { got = append(got, "b:"+args[0].(string)) }, false)
	b.On(ContentPreview, func(args ...any) { got = append(got, "other") }, false)

	b.Emit(RefreshRequest, "x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestOnceAndOff(t *testing.T) {
	b := NewBus()
	calls := 0
	b.On(PostDataLoaded, func(...any) { calls++ }, true)
	id := b.On(PostDataLoaded, func(...any) { calls += 10 }, false)
	require.NotEmpty(t, id)

	b.Emit(PostDataLoaded)
	b.Emit(PostDataLoaded)
	assert.Equal(t, 21, calls)

	assert.True(t, b.Off(id))
	assert.False(t, b.Off(id))
	b.Emit(PostDataLoaded)
	assert.Equal(t, 21, calls)
	assert.Zero(t, b.Count(PostDataLoaded))
}

func TestHandlerMayResubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	var h Handler
	h = func(...any) {
		calls++
		b.On(PostCommentIDLoaded, h, true)
	}
	b.On(PostCommentIDLoaded, h, true)
	b.Emit(PostCommentIDLoaded)
	b.Emit(PostCommentIDLoaded)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, b.Count(PostCommentIDLoaded))
}

func TestEmitNextTick(t *testing.T) {
	b := NewBus()
	done := make(chan int, 1)
	b.On(RefreshRequest, func(args ...any) { done <- args[0].(int) }, false)
	b.EmitNextTick(RefreshRequest, 7)
	b.Wait()
	assert.Equal(t, 7, <-done)
}
