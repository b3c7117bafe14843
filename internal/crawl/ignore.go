package crawl

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFiles are read from every directory during the walk.
var ignoreFiles = []string{".gitignore", ".ignore"}

// ignoreRule is one compiled ignore file scoped to the directory holding it.
type ignoreRule struct {
	dir     string // slash-separated, relative to the crawl root; "" for the root
	matcher *gitignore.GitIgnore
}

// ignoreStack holds the rules of the directories seen so far. Rules are
// only added, so lookups for a path consult the rules of its ancestors.
type ignoreStack struct {
	rules map[string][]ignoreRule
}

func newIgnoreStack() *ignoreStack {
	return &ignoreStack{rules: make(map[string][]ignoreRule)}
}

// load compiles the ignore files of dir (relative, slash-separated).
// Missing files are not an error.
func (s *ignoreStack) load(root, dir string) error {
	var names []string
	for _, name := range ignoreFiles {
		names = append(names, path.Join(dir, name))
	}
	if dir == "" {
		names = append(names, ".git/info/exclude")
	}
	for _, rel := range names {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(full); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		m, err := gitignore.CompileIgnoreFile(full)
		if err != nil {
			return err
		}
		s.rules[dir] = append(s.rules[dir], ignoreRule{dir: dir, matcher: m})
	}
	return nil
}

// ignored reports whether rel (slash-separated, relative to the root) is
// excluded by the rules of any ancestor directory.
func (s *ignoreStack) ignored(rel string, isDir bool) bool {
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	for {
		for _, r := range s.rules[dir] {
			sub := rel
			if r.dir != "" {
				sub = strings.TrimPrefix(rel, r.dir+"/")
			}
			if isDir {
				sub += "/"
			}
			if r.matcher.MatchesPath(sub) {
				return true
			}
		}
		if dir == "" {
			return false
		}
		dir = path.Dir(dir)
		if dir == "." {
			dir = ""
		}
	}
}

// hidden reports whether a directory entry name follows the dot-file
// convention.
func hidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}
