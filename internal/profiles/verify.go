package profiles

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// placeholderPattern matches any brace-delimited reference token, known or not.
var placeholderPattern = regexp.MustCompile(`\{[a-z0-9]+(?:-[a-z0-9]+)*-ref\}`)

// FindingKind classifies a verification finding.
type FindingKind string

const (
	FindingMissingCopy   FindingKind = "missing_copy"
	FindingMissingFile   FindingKind = "missing_file"
	FindingExtraFile     FindingKind = "extra_file"
	FindingLeftoverToken FindingKind = "leftover_token"
)

// Finding is one problem detected in a published copy.
type Finding struct {
	Kind  FindingKind
	Tag   string
	File  string // slash-separated, relative to the tag root
	Line  int
	Token string
}

// Verify checks the published copies of version against the template tree:
// every tag directory exists, mirrors the template file set and holds no
// placeholder tokens. An empty result means the publication is clean.
func (p *Publisher) Verify(version string) ([]Finding, error) {
	return Verify(p.settings.TemplateDir, p.settings.OutputRoot, p.Tags(version))
}

// Verify checks the copies of tags under outputRoot against templateDir.
func Verify(templateDir, outputRoot string, tags []string) ([]Finding, error) {
	want, err := listFiles(templateDir)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, tag := range tags {
		root := filepath.Join(outputRoot, tag)
		if _, err := os.Stat(root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				findings = append(findings, Finding{Kind: FindingMissingCopy, Tag: tag})
				continue
			}
			return nil, err
		}

		got, err := listFiles(root)
		if err != nil {
			return nil, err
		}

		for rel := range want {
			if _, ok := got[rel]; !ok {
				findings = append(findings, Finding{Kind: FindingMissingFile, Tag: tag, File: rel})
			}
		}

		for rel := range got {
			if _, ok := want[rel]; !ok {
				findings = append(findings, Finding{Kind: FindingExtraFile, Tag: tag, File: rel})
			}
			leftovers, err := scanTokens(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return nil, err
			}
			for _, l := range leftovers {
				l.Tag = tag
				l.File = rel
				findings = append(findings, l)
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Tag != b.Tag {
			return a.Tag < b.Tag
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Token < b.Token
	})
	return findings, nil
}

// listFiles returns the set of regular files below root as slash-separated relative paths.
func listFiles(root string) (map[string]struct{}, error) {
	files := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func scanTokens(path string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for i, line := range bytes.Split(data, []byte("\n")) {
		for _, m := range placeholderPattern.FindAll(line, -1) {
			findings = append(findings, Finding{Kind: FindingLeftoverToken, Line: i + 1, Token: string(m)})
		}
	}
	return findings, nil
}
