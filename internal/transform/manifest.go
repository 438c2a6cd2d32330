package transform

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// manifestEndpoint is one endpoint entry in the MCP manifest.
type manifestEndpoint struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Trailing //-comments are tolerated in manifest templates even though
// JSON forbids them.
var manifestCommentRe = regexp.MustCompile(`(?m)\s+//.*$`)

const defaultManifestTemplate = `{
  "schemaVersion": "0.1",
  "name": "guide-api",
  "description": "JSON API generated from a markdown guide",
  "endpoints": [
    {
      "name": "main_guide",
      "description": "The complete guide",
      "path": "/api/guide.json"
    }
  ]
}`

// renderManifest produces manifest.json from the template (or a built-in
// default when the caller has none). The template's main_guide endpoint is
// kept; one endpoint per generated guide is appended.
func renderManifest(tmpl []byte, guides []GuideEntry) ([]byte, error) {
	if len(tmpl) == 0 {
		tmpl = []byte(defaultManifestTemplate)
	}
	tmpl = manifestCommentRe.ReplaceAll(tmpl, nil)

	var manifest map[string]json.RawMessage
	if err := json.Unmarshal(tmpl, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest template: %w", err)
	}

	var declared []manifestEndpoint
	if raw, ok := manifest["endpoints"]; ok {
		if err := json.Unmarshal(raw, &declared); err != nil {
			return nil, fmt.Errorf("parsing manifest endpoints: %w", err)
		}
	}

	endpoints := make([]manifestEndpoint, 0, len(guides)+1)
	for _, ep := range declared {
		if ep.Name == "main_guide" {
			endpoints = append(endpoints, ep)
		}
	}

	for _, g := range guides {
		base := g.Path[strings.LastIndex(g.Path, "/")+1:]
		endpoints = append(endpoints, manifestEndpoint{
			Name:        strings.TrimSuffix(base, ".json"),
			Description: fmt.Sprintf("%s guide for %s", capitalize(g.Type), g.Name),
			Path:        "/" + g.Path,
		})
	}

	encoded, err := json.Marshal(endpoints)
	if err != nil {
		return nil, err
	}
	manifest["endpoints"] = encoded

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
