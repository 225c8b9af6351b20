package collections_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alkime/scribe/pkg/collections"
)

func TestApply(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		got := collections.Apply([]int{3, 1, 2}, strconv.Itoa)
		assert.Equal(t, []string{"3", "1", "2"}, got)
	})

	t.Run("struct fields", func(t *testing.T) {
		type device struct {
			Name      string
			IsDefault bool
		}
		devices := []device{{Name: "Built-in Microphone", IsDefault: true}, {Name: "USB Mic"}}

		names := collections.Apply(devices, func(d device) string { return d.Name })
		assert.Equal(t, []string{"Built-in Microphone", "USB Mic"}, names)
	})

	t.Run("nil input", func(t *testing.T) {
		got := collections.Apply(nil, func(s string) int { return len(s) })
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
