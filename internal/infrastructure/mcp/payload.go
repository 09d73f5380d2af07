package mcp

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanConfig controls how HTML-ish tool payloads are trimmed before they
// enter the conversation. Browser snapshots come back enormous; scripts,
// styles and presentation attributes carry no signal for the model.
type CleanConfig struct {
	TagsToRemove  []string
	AttrsToRemove []string
	MaxOutputSize int
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
	},
	MaxOutputSize: 130_000,
}

// CleanPayload shrinks a tool payload for the model. Non-HTML payloads pass
// through untouched apart from the size cap.
func CleanPayload(payload string, cfg *CleanConfig) string {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}
	if !looksLikeHTML(payload) {
		return truncate(payload, cfg.MaxOutputSize)
	}

	doc, err := html.Parse(strings.NewReader(payload))
	if err != nil {
		return truncate(payload, cfg.MaxOutputSize)
	}
	body := findBodyNode(doc)
	if body == nil {
		return truncate(payload, cfg.MaxOutputSize)
	}

	cleanNode(body, cfg)
	return truncate(renderNode(body), cfg.MaxOutputSize)
}

func looksLikeHTML(s string) bool {
	t := strings.TrimSpace(s)
	return strings.Contains(t, "<html") || strings.Contains(t, "<body") ||
		strings.HasPrefix(t, "<!DOCTYPE") || strings.HasPrefix(t, "<!doctype")
}

func findBodyNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBodyNode(c); b != nil {
			return b
		}
	}
	return nil
}

func cleanNode(n *html.Node, cfg *CleanConfig) {
	if n.Type == html.CommentNode {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	for _, tag := range cfg.TagsToRemove {
		if n.Data == tag {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			return
		}
	}

	n.Attr = filterAttributes(n.Attr, cfg)

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func filterAttributes(attrs []html.Attribute, cfg *CleanConfig) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range attrs {
		if shouldRemoveAttr(attr, cfg) {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func shouldRemoveAttr(attr html.Attribute, cfg *CleanConfig) bool {
	for _, r := range cfg.AttrsToRemove {
		if attr.Key == r {
			return true
		}
	}
	// Event handlers and data-/aria- noise never help the model.
	return strings.HasPrefix(attr.Key, "data-") ||
		strings.HasPrefix(attr.Key, "aria-") ||
		strings.HasPrefix(attr.Key, "on")
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func truncate(s string, maxSize int) string {
	if maxSize > 0 && len(s) > maxSize {
		return s[:maxSize] + "\n... (truncated)"
	}
	return s
}
