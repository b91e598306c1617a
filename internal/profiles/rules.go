package profiles

import (
	"fmt"
	"path"
	"strings"
)

// Rule maps one placeholder token to a URL relative to the published tag.
type Rule struct {
	// Placeholder is the token name without braces, e.g. "dataset-ref".
	Placeholder string

	// Path is the URL path below the tag, e.g. "dataset.json".
	Path string

	// Files selects the files rewritten by this rule, relative to the tag
	// root. A selector is either a literal slash-separated path, which must
	// exist, or a pattern of path.Match segments where "**" spans any number
	// of directories. A pattern may match no file.
	Files []string

	// Extensions nests every selector below each named extension directory.
	Extensions []string
}

// Token returns the literal text replaced in target files.
func (r Rule) Token() string {
	return "{" + r.Placeholder + "}"
}

// URL returns the absolute URL the token resolves to for tag.
func (r Rule) URL(baseURL, tag string) string {
	return strings.TrimRight(baseURL, "/") + "/" + tag + "/" + strings.TrimLeft(r.Path, "/")
}

// Targets returns the rule's selectors with the extension fan-out applied.
func (r Rule) Targets() []string {
	if len(r.Extensions) == 0 {
		return append([]string(nil), r.Files...)
	}
	targets := make([]string, 0, len(r.Extensions)*len(r.Files))
	for _, ext := range r.Extensions {
		for _, f := range r.Files {
			targets = append(targets, path.Join(ext, f))
		}
	}
	return targets
}

// String renders a short description of a rule for listings.
func (r Rule) String() string {
	return fmt.Sprintf("%s -> %s [%s]", r.Token(), r.Path, strings.Join(r.Targets(), ", "))
}

// Rules is the central placeholder table applied to every published tag.
type Rules []Rule

// DefaultRules returns the canonical Fairspec rule table.
func DefaultRules() Rules {
	return Rules{
		{Placeholder: "fairspec-file-ref", Path: "file.json", Files: []string{"**/*.json"}},
		{Placeholder: "fairspec-table-ref", Path: "table.json", Files: []string{"**/*.json"}},
		{Placeholder: "file-dialect-ref", Path: "file-dialect.json", Files: []string{"**/*.json"}},
		{Placeholder: "data-schema-ref", Path: "data-schema.json", Files: []string{"**/*.json"}},
		{Placeholder: "table-schema-ref", Path: "table-schema.json", Files: []string{"**/*.json"}},
		{Placeholder: "dataset-ref", Path: "dataset.json", Files: []string{"dataset.json"}, Extensions: []string{"datacite", "grei"}},
	}
}

// Validate rejects tables that could not be applied safely.
func (rs Rules) Validate() error {
	seen := make(map[string]struct{}, len(rs))
	for i, r := range rs {
		if r.Placeholder == "" {
			return fmt.Errorf("rule %d: empty placeholder", i)
		}
		if strings.ContainsAny(r.Placeholder, "{}") {
			return fmt.Errorf("rule %q: placeholder must not contain braces", r.Placeholder)
		}
		if _, dup := seen[r.Placeholder]; dup {
			return fmt.Errorf("rule %q: duplicate placeholder", r.Placeholder)
		}
		seen[r.Placeholder] = struct{}{}

		if strings.TrimLeft(r.Path, "/") == "" {
			return fmt.Errorf("rule %q: empty URL path", r.Placeholder)
		}
		if len(r.Files) == 0 {
			return fmt.Errorf("rule %q: no target files", r.Placeholder)
		}
		for _, sel := range r.Targets() {
			if err := validateSelector(sel); err != nil {
				return fmt.Errorf("rule %q: %w", r.Placeholder, err)
			}
		}
	}
	return nil
}

func validateSelector(sel string) error {
	if sel == "" || path.IsAbs(sel) || strings.Contains(sel, `\`) {
		return fmt.Errorf("invalid selector %q", sel)
	}
	for _, part := range strings.Split(sel, "/") {
		if part == ".." {
			return fmt.Errorf("selector %q escapes the tag root", sel)
		}
	}
	if _, err := path.Match(sel, ""); err != nil {
		return fmt.Errorf("selector %q: %w", sel, err)
	}
	return nil
}
