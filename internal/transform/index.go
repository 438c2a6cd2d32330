package transform

import (
	"bytes"
	"html/template"
	"sort"
	"strings"
)

// indexRow is one table row on the generated index page.
type indexRow struct {
	Kind        string
	Href        string
	Label       string
	Description string
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 20px; }
        h1, h2 { color: #333; }
        a { color: #0366d6; text-decoration: none; }
        a:hover { text-decoration: underline; }
        code { background-color: #f6f8fa; padding: 3px 5px; border-radius: 3px; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th { background-color: #f6f8fa; text-align: left; padding: 10px; }
        td { border-bottom: 1px solid #eee; padding: 10px; }
        .card { background-color: #f6f8fa; padding: 15px; border-radius: 5px; margin: 20px 0; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p>This is the JSON API for the {{.Title}}.</p>

    <div class="card">
        <h2>Manifest File</h2>
        <p>The <a href="manifest.json">manifest.json</a> file is used by MCP (Model Context Protocol) servers to define available endpoints.</p>
    </div>

    <h2>Available Resources</h2>
    <table>
        <thead>
            <tr>
                <th>Type</th>
                <th>Resource</th>
                <th>Description</th>
            </tr>
        </thead>
        <tbody>
{{- range .Rows}}
            <tr>
                <td>{{.Kind}}</td>
                <td><a href="{{.Href}}">{{.Label}}</a></td>
                <td>{{.Description}}</td>
            </tr>
{{- end}}
        </tbody>
    </table>

    <h2>Usage</h2>
    <pre><code>GET api/guide.json       # the complete guide
GET api/guides/...       # a specialized guide
GET manifest.json        # the MCP server manifest</code></pre>
</body>
</html>
`

var indexTmpl = template.Must(template.New("index").Parse(indexTemplate))

// renderIndex produces the static index page listing the manifest, the
// main guide, and every generated guide grouped by type in a fixed order.
func renderIndex(siteName string, guides []GuideEntry) ([]byte, error) {
	rows := []indexRow{
		{Kind: "Manifest", Href: ManifestPath, Label: "manifest.json", Description: "MCP Server Manifest"},
		{Kind: "Main Guide", Href: MainGuidePath, Label: "guide.json", Description: "Complete guide"},
	}

	byType := make(map[string][]GuideEntry)
	for _, g := range guides {
		byType[g.Type] = append(byType[g.Type], g)
	}

	// Known types in their fixed order, then any custom frontmatter types
	// alphabetically.
	order := append([]string{}, guideTypeOrder...)
	var extra []string
	for guideType := range byType {
		if !contains(order, guideType) {
			extra = append(extra, guideType)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	for _, guideType := range order {
		group := byType[guideType]
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })
		for _, g := range group {
			rows = append(rows, indexRow{
				Kind:        capitalize(guideType),
				Href:        g.Path,
				Label:       g.Path[strings.LastIndex(g.Path, "/")+1:],
				Description: g.Name,
			})
		}
	}

	return executeIndex(siteName+" API", rows)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func executeIndex(title string, rows []indexRow) ([]byte, error) {
	var buf bytes.Buffer
	err := indexTmpl.Execute(&buf, struct {
		Title string
		Rows  []indexRow
	}{Title: title, Rows: rows})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
