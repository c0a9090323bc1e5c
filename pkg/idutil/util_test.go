package idutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	before := time.Now().Add(-time.Second)

	a := NewID()
	b := NewID()
	require.NotEqual(t, a, b)
	require.Greater(t, b, a)
	require.True(t, CreatedAt(a).After(before))
}
