package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/guidecraft/guidecraft/internal/errors"
)

// Transform converts one source document plus its guide files into the
// complete artifact set. It never touches the filesystem; Result.Files
// holds every artifact keyed by its relative output path.
//
// Individual guides that cannot be processed degrade rather than failing
// the build; only an empty source document is a document-level error.
func Transform(in Input, opts Options) (*Result, error) {
	opts = withDefaults(opts)

	if len(in.Source) == 0 {
		return nil, errors.Newf(errors.KindMalformedInput, "transform", "", "source document is empty")
	}

	src := StripComments(in.Source)
	content, found := mainContent(src)
	if !found {
		// No level-2 section marker: publish the whole document as-is.
		content = src
	}

	refs := ExtractReferences(content, opts.BaseURL)
	date := opts.Now.Format("2006-01-02")

	result := &Result{
		Main: MainGuide{
			Metadata: Metadata{
				Name:        opts.SiteName,
				Version:     opts.Version,
				LastUpdated: date,
				Source:      opts.SourceURL,
			},
			Content:    string(content),
			References: refs,
		},
		Sections: Sections(content),
		Files:    make(map[string][]byte),
	}

	// Guide files sorted by name so output ordering never depends on how
	// the caller enumerated the directory.
	guides := make([]GuideFile, len(in.Guides))
	copy(guides, in.Guides)
	sort.Slice(guides, func(i, j int) bool { return guides[i].Name < guides[j].Name })

	for _, gf := range guides {
		entry, rendered, ok := renderGuide(gf, opts, date)
		if !ok {
			continue
		}
		result.Guides = append(result.Guides, entry)
		result.Files[entry.Path] = rendered
	}

	mainJSON, err := marshalJSON(result.Main)
	if err != nil {
		return nil, errors.New(errors.KindMalformedInput, "transform", "", err)
	}
	result.Files[MainGuidePath] = mainJSON

	index, err := renderIndex(opts.SiteName, result.Guides)
	if err != nil {
		return nil, errors.New(errors.KindMalformedInput, "transform", IndexPath, err)
	}
	result.Files[IndexPath] = index

	manifest, err := renderManifest(in.ManifestTemplate, result.Guides)
	if err != nil {
		return nil, errors.New(errors.KindMalformedInput, "transform", ManifestPath, err)
	}
	result.Files[ManifestPath] = manifest

	return result, nil
}

// renderGuide processes one guide file. A guide that cannot be rendered
// reports ok=false and is skipped; it never aborts the whole build.
func renderGuide(gf GuideFile, opts Options, date string) (GuideEntry, []byte, bool) {
	if !strings.HasSuffix(gf.Name, ".md") {
		return GuideEntry{}, nil, false
	}

	body := StripComments(gf.Data)
	fm, body := splitFrontmatter(body)

	title, ok := DocumentTitle(body)
	if !ok {
		title = strings.TrimSuffix(gf.Name, ".md")
	}
	if fm.Title != "" {
		title = fm.Title
	}

	guideType := GuideType(gf.Name)
	if fm.Type != "" {
		guideType = fm.Type
	}
	version := opts.Version
	if fm.Version != "" {
		version = fm.Version
	}

	jsonName := strings.TrimSuffix(gf.Name, ".md") + ".json"
	relPath := fmt.Sprintf("%s/%ss/%s", opts.BaseURL, guideType, jsonName)

	guide := Guide{
		Metadata: Metadata{
			Name:        title,
			Type:        guideType,
			Version:     version,
			LastUpdated: date,
			Source:      guideSourceURL(opts.SourceURL, gf.Name),
		},
		Content: string(body),
	}

	rendered, err := marshalJSON(guide)
	if err != nil {
		return GuideEntry{}, nil, false
	}

	return GuideEntry{Name: title, Type: guideType, Path: relPath}, rendered, true
}

func guideSourceURL(sourceURL, name string) string {
	if sourceURL == "" {
		return ""
	}
	return strings.TrimSuffix(sourceURL, "/") + "/docs/guides/" + name
}

func withDefaults(opts Options) Options {
	if opts.SiteName == "" {
		opts.SiteName = defaultSiteName
	}
	if opts.Version == "" {
		opts.Version = defaultVersion
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	return opts
}

func marshalJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
