package mailing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriber(t *testing.T) {
	s, err := NewSubscriber(" Fan@Example.com ", " Fan ", "")
	require.NoError(t, err)
	assert.Equal(t, "fan@example.com", s.Email)
	assert.Equal(t, "Fan", s.Name)
	assert.Equal(t, "website", s.Source)

	_, err = NewSubscriber("fan", "", "")
	assert.Error(t, err)

	_, err = NewSubscriber("fan@example.com", strings.Repeat("x", 201), "")
	assert.Error(t, err)

	s, err = NewSubscriber("fan@example.com", "", strings.Repeat("s", 80))
	require.NoError(t, err)
	assert.Len(t, s.Source, 50)
}
