package scraper

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/net/html"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
	headingGapPattern   = regexp.MustCompile(`(?m)^(#{1,6} [^\n]*)\n{2,}`)
)

// alwaysSkipped never carry article text
var alwaysSkipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "svg": true, "template": true,
}

const maxDepth = 64

// HTMLToMarkdown renders the readable text of an HTML document as simple
// markdown. Subtrees of excludeTags are dropped. Blocks are separated by a
// blank line so downstream extraction can split sections.
func HTMLToMarkdown(src string, excludeTags []string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse HTML")
	}

	skip := make(map[string]bool, len(alwaysSkipped)+len(excludeTags))
	for tag := range alwaysSkipped {
		skip[tag] = true
	}
	for _, tag := range excludeTags {
		skip[strings.ToLower(tag)] = true
	}

	var sb strings.Builder
	render(doc, &sb, skip, 0)

	return cleanMarkdown(sb.String()), nil
}

func render(n *html.Node, sb *strings.Builder, skip map[string]bool, depth int) {
	if depth > maxDepth {
		return
	}

	switch n.Type {
	case html.TextNode:
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
		return
	case html.ElementNode:
		if skip[n.Data] {
			return
		}
		switch n.Data {
		case "title":
			// The document title is rendered from h1 instead
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
			sb.WriteString(strings.Repeat("#", int(n.Data[1]-'0')))
			sb.WriteString(" ")
		case "p", "div", "section", "article", "blockquote", "table", "ul", "ol":
			sb.WriteString("\n\n")
		case "br", "tr":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(c, sb, skip, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n")
		case "p", "div", "section", "article", "blockquote", "table", "ul", "ol":
			sb.WriteString("\n\n")
		}
	}
}

func cleanMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpacePattern.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	// Keep a heading in the same block as the text it titles
	s = headingGapPattern.ReplaceAllString(s, "$1\n")
	return strings.TrimSpace(s)
}
