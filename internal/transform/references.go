package transform

import (
	"fmt"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// GuideType infers the type of a guide from its path. The buckets drive
// both the output directory layout (api/guides/<type>s/) and the index
// page grouping.
func GuideType(p string) string {
	lower := strings.ToLower(p)
	switch {
	case strings.Contains(lower, "python"):
		return "language"
	case strings.Contains(lower, "make"):
		return "pattern"
	case strings.Contains(lower, "postgresql"), strings.Contains(lower, "sql"):
		return "platform"
	case strings.Contains(lower, "shell"):
		return "language"
	default:
		return "other"
	}
}

// ExtractReferences walks the markdown AST of the main document and
// returns one Reference per link that targets a guide document (a path
// containing "guides" and ending in ".md"), with the API endpoint the
// build generates for it.
func ExtractReferences(src []byte, baseURL string) []Reference {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	refs := make([]Reference, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		link, ok := n.(*gmast.Link)
		if !ok {
			return gmast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if !strings.Contains(dest, "guides") || !strings.HasSuffix(dest, ".md") {
			return gmast.WalkContinue, nil
		}

		guideType := GuideType(dest)
		jsonName := strings.TrimSuffix(path.Base(dest), ".md") + ".json"
		refs = append(refs, Reference{
			Name:   nodeText(link, src),
			Path:   dest,
			Type:   guideType,
			APIURL: fmt.Sprintf("%s/%ss/%s", baseURL, guideType, jsonName),
		})
		return gmast.WalkContinue, nil
	})
	return refs
}

// nodeText collects the plain text content of a node's subtree.
func nodeText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}
