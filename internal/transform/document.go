// Package transform converts a markdown source document (and its linked
// guide documents) into the structured JSON/HTML artifact set served by
// the dev server. It is a pure transformation: callers hand in bytes and
// receive parsed data plus a map of files to write, with no filesystem
// access on this side of the boundary.
package transform

import "time"

// Metadata describes a rendered document in the JSON API.
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Source      string `json:"source,omitempty"`
}

// Reference points from the main document to a linked guide and the API
// endpoint generated for it.
type Reference struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Type   string `json:"type"`
	APIURL string `json:"apiUrl"`
}

// MainGuide is the JSON shape of the primary document endpoint.
type MainGuide struct {
	Metadata   Metadata    `json:"metadata"`
	Content    string      `json:"content"`
	References []Reference `json:"references"`
}

// Guide is the JSON shape of a specialized guide endpoint.
type Guide struct {
	Metadata Metadata `json:"metadata"`
	Content  string   `json:"content"`
}

// Section is one heading-delimited region of a document. Body text is
// preserved verbatim from the source bytes. A document with no headings
// degrades to a single level-0 section holding the whole text.
type Section struct {
	Title string `json:"title"`
	Level int    `json:"level"`
	Body  string `json:"body"`
}

// GuideFile is one guide document handed to the transformer. Name is the
// bare filename (e.g. "python.md"); the transformer never touches paths.
type GuideFile struct {
	Name string
	Data []byte
}

// GuideEntry records one generated guide endpoint, used for the index
// page and the manifest.
type GuideEntry struct {
	Name string
	Type string
	Path string
}

// Input is everything the transformer consumes for one build.
type Input struct {
	Source           []byte
	Guides           []GuideFile
	ManifestTemplate []byte
}

// Options tunes the transformation. The zero value is usable; Now must be
// injected by the caller so identical inputs produce identical outputs
// within one build.
type Options struct {
	SiteName  string
	Version   string
	BaseURL   string
	SourceURL string
	Now       time.Time
}

// Result is the full outcome of one transformation. Files maps relative
// output paths to rendered bytes; the caller owns writing them.
type Result struct {
	Main     MainGuide
	Sections []Section
	Guides   []GuideEntry
	Files    map[string][]byte
}

const (
	defaultSiteName = "Developer Guide"
	defaultVersion  = "0.1.0"
	defaultBaseURL  = "api/guides"

	// MainGuidePath is the stable location of the primary JSON endpoint
	// inside the output directory.
	MainGuidePath = "api/guide.json"

	// IndexPath is the stable location of the generated index page.
	IndexPath = "index.html"

	// ManifestPath is the stable location of the generated MCP manifest.
	ManifestPath = "manifest.json"
)

// guideTypeOrder fixes the ordering of guide type groups on the index
// page and keeps output byte-stable across builds.
var guideTypeOrder = []string{"language", "pattern", "platform", "other"}
