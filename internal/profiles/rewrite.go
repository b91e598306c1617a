package profiles

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrTargetMissing reports a literal rule selector that names no file in a
// published copy.
var ErrTargetMissing = errors.New("substitution target missing")

// ErrTokenLeftover reports a known placeholder still present in a copy after
// every rule has been applied.
var ErrTokenLeftover = errors.New("placeholder left unresolved")

// resolveTargets expands a selector to the regular files it names below root,
// in lexical order. A literal selector must name an existing regular file,
// otherwise ErrTargetMissing is returned. A pattern selector may match
// nothing.
func resolveTargets(root, selector string) ([]string, error) {
	if !hasMeta(selector) {
		target := filepath.Join(root, filepath.FromSlash(selector))
		info, err := os.Stat(target)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrTargetMissing, selector)
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s is not a regular file", ErrTargetMissing, selector)
		}
		return []string{target}, nil
	}

	var files []string
	err := walkFiles(root, func(file, rel string) error {
		if matchSelector(selector, rel) {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// walkFiles calls fn for every regular file below root with its absolute path
// and its slash-separated path relative to root.
func walkFiles(root string, fn func(file, rel string) error) error {
	return filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return err
		}
		return fn(file, filepath.ToSlash(rel))
	})
}

func hasMeta(selector string) bool {
	return strings.ContainsAny(selector, `*?[`)
}

// matchSelector reports whether the slash-separated name matches selector.
// Each segment is a path.Match pattern; a "**" segment matches zero or more
// directories.
func matchSelector(selector, name string) bool {
	return matchSegments(strings.Split(selector, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], name[0]); err != nil || !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}

// findLeftover returns the first file below root, in lexical order, that
// still contains one of tokens, along with that token. It returns empty
// strings when the tree is clean.
func findLeftover(root string, tokens []string) (string, string, error) {
	var file, token string
	err := walkFiles(root, func(f, _ string) error {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			if bytes.Contains(data, []byte(t)) {
				file, token = f, t
				return fs.SkipAll
			}
		}
		return nil
	})
	return file, token, err
}

// replaceInFile replaces every occurrence of token in the file at path with
// replacement and returns the number of occurrences. The file is rewritten in
// place, keeping its mode, and only when it contains the token.
func replaceInFile(path, token, replacement string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	from := []byte(token)
	n := bytes.Count(data, from)
	if n == 0 {
		return 0, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	out := bytes.ReplaceAll(data, from, []byte(replacement))
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return 0, err
	}
	return n, nil
}
