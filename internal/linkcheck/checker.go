// Package linkcheck finds documentation links into the published profiles
// that do not resolve to a published file.
package linkcheck

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
	"github.com/fairspec/profilepub/internal/logfields"
)

// BrokenLink is a profile URL with no published file behind it.
type BrokenLink struct {
	Source string // content file, relative to the content directory
	URL    string
	Target string // local path the URL resolved to
}

// Checker resolves profile URLs against the published output root.
type Checker struct {
	baseURL    string
	outputRoot string
}

// NewChecker creates a Checker. baseURL is the profiles base URL, e.g.
// https://fairspec.org/profiles.
func NewChecker(baseURL, outputRoot string) *Checker {
	return &Checker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		outputRoot: outputRoot,
	}
}

// Resolve maps link to a path below the output root. ok is false for links
// outside the profiles base URL.
func (c *Checker) Resolve(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.RawFragment = ""
	s := u.String()

	if s != c.baseURL && !strings.HasPrefix(s, c.baseURL+"/") {
		return "", false
	}

	rest := strings.TrimPrefix(s, c.baseURL)
	rel := strings.TrimPrefix(path.Clean("/"+rest), "/")
	return filepath.Join(c.outputRoot, filepath.FromSlash(rel)), true
}

// Check walks contentDir and reports every broken profile link found in
// Markdown (.md, .mdx) and HTML (.html, .htm) files. Hidden directories and
// node_modules are skipped.
func (c *Checker) Check(ctx context.Context, contentDir string) ([]BrokenLink, error) {
	var broken []BrokenLink
	scanned := 0

	err := filepath.WalkDir(contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != contentDir && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		links, err := linksIn(p)
		if err != nil {
			return err
		}
		if links == nil {
			return nil
		}
		scanned++

		rel, err := filepath.Rel(contentDir, p)
		if err != nil {
			return err
		}
		for _, link := range links {
			target, ok := c.Resolve(link)
			if !ok {
				continue
			}
			if _, err := os.Stat(target); err != nil {
				broken = append(broken, BrokenLink{Source: filepath.ToSlash(rel), URL: link, Target: target})
			}
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to scan content directory").
			WithContext("content_dir", contentDir).
			Build()
	}

	sort.SliceStable(broken, func(i, j int) bool {
		if broken[i].Source != broken[j].Source {
			return broken[i].Source < broken[j].Source
		}
		return broken[i].URL < broken[j].URL
	})

	slog.Debug("Link check complete",
		logfields.Path(contentDir),
		logfields.Count(scanned),
		slog.Int("broken", len(broken)))
	return broken, nil
}

// linksIn extracts links from a content file. It returns nil for file types
// that are not scanned.
func linksIn(p string) ([]string, error) {
	var markdown bool
	switch strings.ToLower(filepath.Ext(p)) {
	case ".md", ".mdx":
		markdown = true
	case ".html", ".htm":
	default:
		return nil, nil
	}

	data, err := os.ReadFile(p) // #nosec G304 -- path comes from walking the content directory
	if err != nil {
		return nil, err
	}
	if markdown {
		return ExtractMarkdownLinks(data), nil
	}
	links, err := ExtractHTMLLinks(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []string{}
	}
	return links, nil
}
