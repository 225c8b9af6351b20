package transcript_test

import (
	"testing"

	"github.com/alkime/scribe/internal/transcript"
	"github.com/stretchr/testify/assert"
)

func TestBuffer_InterimNeverInSnapshot(t *testing.T) {
	buf := transcript.NewBuffer()

	buf.SetInterim("hel")
	buf.SetInterim("hello wor")
	assert.Equal(t, "", buf.Snapshot())
	assert.Equal(t, "hello wor", buf.Interim())

	buf.AppendFinal("hello world")
	assert.Equal(t, "hello world", buf.Snapshot())
	assert.Equal(t, "", buf.Interim())

	buf.SetInterim("how are")
	buf.SetInterim("how are you")
	buf.AppendFinal("how are you")
	buf.SetInterim("fine")

	assert.Equal(t, "hello world how are you", buf.Snapshot())
	assert.Equal(t, []string{"hello world", "how are you"}, buf.Segments())
	assert.NotContains(t, buf.Snapshot(), "fine")
}

func TestBuffer_AppendFinal(t *testing.T) {
	t.Run("ignores blank chunks", func(t *testing.T) {
		buf := transcript.NewBuffer()
		buf.AppendFinal("   ")
		buf.AppendFinal("")
		assert.True(t, buf.Empty())
		assert.Empty(t, buf.Segments())
	})

	t.Run("trims and joins with single spaces", func(t *testing.T) {
		buf := transcript.NewBuffer()
		buf.AppendFinal("  one ")
		buf.AppendFinal("two  ")
		assert.Equal(t, "one two", buf.Snapshot())
	})

	t.Run("keeps interim remainder past the final prefix", func(t *testing.T) {
		buf := transcript.NewBuffer()
		buf.SetInterim("first sentence second")
		buf.AppendFinal("first sentence")
		assert.Equal(t, "second", buf.Interim())
	})

	t.Run("drops unrelated interim text", func(t *testing.T) {
		buf := transcript.NewBuffer()
		buf.SetInterim("something else")
		buf.AppendFinal("first sentence")
		assert.Equal(t, "", buf.Interim())
	})
}

func TestBuffer_Clear(t *testing.T) {
	buf := transcript.NewBuffer()
	buf.AppendFinal("keep me")
	buf.SetInterim("pending")

	buf.Clear()
	assert.Equal(t, "", buf.Snapshot())
	assert.Equal(t, "", buf.Interim())
	assert.True(t, buf.Empty())

	buf.Clear()
	assert.Equal(t, "", buf.Snapshot())
}

func TestBuffer_Replace(t *testing.T) {
	buf := transcript.NewBuffer()
	buf.AppendFinal("old text")
	buf.SetInterim("old interim")

	buf.Replace("  fresh transcript ")
	assert.Equal(t, "fresh transcript", buf.Snapshot())
	assert.Equal(t, "", buf.Interim())
	assert.Len(t, buf.Segments(), 1)
}
