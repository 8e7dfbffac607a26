package vector

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNamespaceFor(t *testing.T) {
	t.Run("strips separators from UUIDs", func(t *testing.T) {
		ns := NamespaceFor("9f3a2b1c-4d5e-6f70-8192-a3b4c5d6e7f8")
		assert.Equal(t, "kb_user_9f3a2b1c4d5e6f708192a3b4c5d6e7f8", ns)
	})

	t.Run("deterministic", func(t *testing.T) {
		id := uuid.NewString()
		assert.Equal(t, NamespaceFor(id), NamespaceFor(id))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, NamespaceFor("ABC-123"), NamespaceFor("abc-123"))
	})

	t.Run("distinct users get distinct namespaces", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			ns := NamespaceFor(uuid.NewString())
			assert.False(t, seen[ns], "namespace collision: %s", ns)
			seen[ns] = true
		}
	})

	t.Run("yields a valid sql identifier", func(t *testing.T) {
		ns := NamespaceFor(uuid.NewString())
		for _, r := range ns {
			valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
			assert.True(t, valid, "unexpected rune %q in %s", r, ns)
		}
	})
}
