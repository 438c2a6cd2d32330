package transform

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderManifestDefault(t *testing.T) {
	guides := []GuideEntry{
		{Name: "Python Style", Type: "language", Path: "api/guides/languages/python.json"},
	}

	out, err := renderManifest(nil, guides)
	require.NoError(t, err)

	var manifest struct {
		Endpoints []manifestEndpoint `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(out, &manifest))

	require.Len(t, manifest.Endpoints, 2)
	assert.Equal(t, "main_guide", manifest.Endpoints[0].Name)
	assert.Equal(t, "python", manifest.Endpoints[1].Name)
	assert.Equal(t, "/api/guides/languages/python.json", manifest.Endpoints[1].Path)
	assert.Equal(t, "Language guide for Python Style", manifest.Endpoints[1].Description)
}

func TestRenderManifestTemplateComments(t *testing.T) {
	tmpl := []byte(`{
  "name": "my-api", // the manifest name
  "endpoints": [
    {
      "name": "main_guide", // kept
      "description": "Main",
      "path": "/api/guide.json"
    },
    {
      "name": "stale_endpoint",
      "description": "dropped on regeneration",
      "path": "/old.json"
    }
  ]
}`)

	out, err := renderManifest(tmpl, nil)
	require.NoError(t, err)

	var manifest struct {
		Name      string             `json:"name"`
		Endpoints []manifestEndpoint `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(out, &manifest))

	assert.Equal(t, "my-api", manifest.Name)
	require.Len(t, manifest.Endpoints, 1)
	assert.Equal(t, "main_guide", manifest.Endpoints[0].Name)
}

func TestRenderManifestBadTemplate(t *testing.T) {
	_, err := renderManifest([]byte("{not json"), nil)
	require.Error(t, err)
}

func TestRenderIndexGrouping(t *testing.T) {
	guides := []GuideEntry{
		{Name: "Zsh", Type: "language", Path: "api/guides/languages/zsh.json"},
		{Name: "Make", Type: "pattern", Path: "api/guides/patterns/make.json"},
		{Name: "Bash", Type: "language", Path: "api/guides/languages/bash.json"},
	}

	out, err := renderIndex("Developer Guide", guides)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "Developer Guide API")
	assert.Contains(t, page, `href="manifest.json"`)
	assert.Contains(t, page, `href="api/guide.json"`)

	// Languages sort alphabetically and precede patterns
	bash := strings.Index(page, "bash.json")
	zsh := strings.Index(page, "zsh.json")
	mk := strings.Index(page, "make.json")
	assert.True(t, bash >= 0 && zsh >= 0 && mk >= 0)
	assert.Less(t, bash, zsh)
	assert.Less(t, zsh, mk)
}
