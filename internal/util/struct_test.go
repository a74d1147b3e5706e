package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/keyless/go-connector/internal/util"
)

type component struct{}

type components struct {
	Name     string
	Required *component
	Handler  func()
	Skipped  *component `wire:"-"`
}

func TestIsStructInitialized(t *testing.T) {
	s := &components{Required: &component{}, Handler: func() {}}
	require.NoError(t, util.IsStructInitialized(s))

	s.Handler = nil
	err := util.IsStructInitialized(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Handler")
}

func TestIsStructInitializedInvalid(t *testing.T) {
	var s *components
	require.Error(t, util.IsStructInitialized(s))
	require.Error(t, util.IsStructInitialized(42))
}
