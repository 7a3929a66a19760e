package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemTrackPersists(t *testing.T) {
	sys := NewSystem(DefaultSystemConfig(), nil)

	rec := sys.Track("m1", RawUsage{InputTokens: 1000, OutputTokens: 500}, &TrackMeta{
		Category:      "skills",
		ResourceURI:   "skills/api-design",
		ResourceCount: 5,
	}, "s1")
	require.NotNil(t, rec)

	view := sys.Metrics.SessionEfficiency("s1")
	require.NotNil(t, view)
	assert.Equal(t, 1, view.MessageCount)
	assert.Equal(t, rec.TotalTokens, view.TotalTokens)
}

func TestSystemDuplicateNotPersisted(t *testing.T) {
	sys := NewSystem(DefaultSystemConfig(), nil)

	require.NotNil(t, sys.Track("m1", RawUsage{InputTokens: 100}, nil, "s1"))
	assert.Nil(t, sys.Track("m1", RawUsage{InputTokens: 100}, nil, "s1"))
	assert.Equal(t, 1, sys.Store.Stats().RecordCount)
}

func TestSystemClose(t *testing.T) {
	sys := NewSystem(DefaultSystemConfig(), nil)
	sys.Track("m1", RawUsage{InputTokens: 100}, nil, "s1")

	sys.Close()
	assert.Equal(t, 0, sys.Store.Stats().RecordCount)
	assert.NotNil(t, sys.Track("m1", RawUsage{InputTokens: 100}, nil, "s1"))
}
