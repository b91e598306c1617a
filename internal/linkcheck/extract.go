package linkcheck

import (
	"io"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// ExtractMarkdownLinks returns the destinations of inline links, images,
// autolinks and reference definitions in a Markdown document.
func ExtractMarkdownLinks(body []byte) []string {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]string, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, string(node.URL(body)))
		case *gmast.Image:
			links = append(links, string(node.Destination))
		case *gmast.Link:
			links = append(links, string(node.Destination))
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not in the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		links = append(links, string(ref.Destination()))
	}

	return links
}

// linkAttrs maps element names to the attribute holding their link.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"script": "src",
}

// ExtractHTMLLinks returns a[href], link[href] and script[src] values of an
// HTML document in document order.
func ExtractHTMLLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := getAttr(n, attr); v != "" {
					links = append(links, v)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
