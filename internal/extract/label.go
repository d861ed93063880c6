package extract

import (
	"net/url"
	"strings"
)

// LinkLabel names a link after the site it points to.
func LinkLabel(rawURL string) string {
	lower := strings.ToLower(rawURL)

	switch {
	case strings.Contains(lower, "github"):
		return "GitHub"
	case strings.Contains(lower, "linkedin"):
		return "LinkedIn"
	case strings.Contains(lower, "portfolio"), strings.Contains(lower, "notion"):
		return "Portfolio"
	}

	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}

	rest := rawURL
	if idx := strings.Index(rest, "//"); idx != -1 {
		rest = rest[idx+2:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx != -1 {
		rest = rest[:idx]
	}
	if rest == "" {
		return rawURL
	}
	return rest
}
