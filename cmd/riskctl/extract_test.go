package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSelectors(t *testing.T) {
	dir := t.TempDir()

	set, err := loadSelectors("")
	require.NoError(t, err)
	assert.Nil(t, set)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"title_selector":"h1","content_selector":"article","confidence":0.8}`), 0o600))
	set, err = loadSelectors(good)
	require.NoError(t, err)
	assert.Equal(t, "article", set.ContentSelector)
	assert.InDelta(t, 0.8, set.Confidence, 1e-9)

	missing := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missing, []byte(`{"title_selector":"h1"}`), 0o600))
	_, err = loadSelectors(missing)
	assert.ErrorContains(t, err, "content selector is required")

	_, err = loadSelectors(filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
