// Package filesystem provides gitignore-aware directory walking shared by the
// files CLI domain and the Plan Generator's context snapshot builder.
package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultIgnorePatterns contains common directories and files to skip when
// walking a project tree.
var DefaultIgnorePatterns = []string{
	"node_modules/",
	"vendor/",
	"go.sum",
	"target/",
	"build/",
	"out/",
	"dist/",
	"bin/",
	"obj/",
	".git/",
	".DS_Store",
	".idea/",
	".vscode/",
	"*.class",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.svg",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.eot",
	"__pycache__/",
	"*.pyc",
	"*.pyo",
	".pytest_cache/",
	"coverage/",
}

// FileTreeOptions configures a walk: depth limits, ignore patterns, and
// hidden-entry visibility.
type FileTreeOptions struct {
	MaxDepth       int
	IgnorePatterns []string
	UseGitIgnore   bool
	ShowHidden     bool
}

// DefaultFileTreeOptions returns sensible defaults for walking a project
// root: a shallow depth limit and the common ignore patterns above.
func DefaultFileTreeOptions() FileTreeOptions {
	return FileTreeOptions{
		MaxDepth:       5,
		IgnorePatterns: DefaultIgnorePatterns,
		UseGitIgnore:   true,
		ShowHidden:     false,
	}
}

// entry is one walked path, relative to the root it was walked from.
type entry struct {
	relPath string
	isDir   bool
	depth   int
}

// walk traverses rootPath applying options' depth limit, gitignore/pattern
// matching, and hidden-entry filtering, invoking visit for every entry that
// survives. It is the one traversal both GenerateFileTree (rendering) and
// ListFiles (flat listing for the Plan Generator) are built on, so the two
// callers can never disagree about what counts as ignored.
func walk(rootPath string, options FileTreeOptions, visit func(entry)) error {
	ignorePatterns := options.IgnorePatterns
	if options.UseGitIgnore {
		if content, err := os.ReadFile(filepath.Join(rootPath, ".gitignore")); err == nil {
			ignorePatterns = append(ignorePatterns, strings.Split(string(content), "\n")...)
		}
	}
	matcher := ignore.CompileIgnoreLines(ignorePatterns...)

	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}

		depth := strings.Count(relPath, string(filepath.Separator))
		if options.MaxDepth > 0 && depth >= options.MaxDepth {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		matchPath := relPath
		if info.IsDir() {
			matchPath = relPath + string(filepath.Separator)
		}
		if matcher.MatchesPath(matchPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !options.ShowHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		visit(entry{relPath: relPath, isDir: info.IsDir(), depth: depth})
		return nil
	})
}

// GenerateFileTree renders rootPath as an ASCII-indented tree under the given
// options, for the `files tree` command.
func GenerateFileTree(rootPath string, options FileTreeOptions) (string, error) {
	var b strings.Builder
	err := walk(rootPath, options, func(e entry) {
		indent := strings.Repeat("  ", e.depth)
		name := filepath.Base(e.relPath)
		if e.isDir {
			b.WriteString(indent + name + "/\n")
		} else {
			b.WriteString(indent + name + "\n")
		}
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// ListFiles returns a flat, gitignore-aware listing of regular-file paths
// under rootPath (relative to rootPath), for the Plan Generator's context
// snapshot: a filtered copy of the project, never the whole tree, embedded
// in the AI prompt alongside the project type and tool list.
func ListFiles(rootPath string, options FileTreeOptions) ([]string, error) {
	var out []string
	err := walk(rootPath, options, func(e entry) {
		if !e.isDir {
			out = append(out, e.relPath)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
