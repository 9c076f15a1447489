package indexer

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// MaxFileSizeBytes skips large generated files
const MaxFileSizeBytes = 500 * 1024

// blockedDirs are dependency caches, build output, VCS metadata and IDE state
var blockedDirs = map[string]struct{}{
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"out":          {},
	".git":         {},
	".vscode":      {},
	".idea":        {},
	"__pycache__":  {},
	".next":        {},
	".nuxt":        {},
	"coverage":     {},
	".nyc_output":  {},
	"vendor":       {},
	".cache":       {},
}

// allowedExtensions lists the source, markup, config and doc formats worth embedding
var allowedExtensions = map[string]struct{}{
	".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {},
	".py": {}, ".java": {}, ".cs": {}, ".go": {},
	".rb": {}, ".php": {}, ".swift": {}, ".kt": {},
	".rs": {}, ".cpp": {}, ".c": {}, ".h": {},
	".md": {}, ".json": {}, ".yaml": {}, ".yml": {},
	".html": {}, ".css": {}, ".scss": {},
	".sh": {}, ".bash": {},
}

// SkipDir reports whether discovery prunes a directory with this name
func SkipDir(name string) bool {
	if _, blocked := blockedDirs[name]; blocked {
		return true
	}
	return strings.HasPrefix(name, ".")
}

// AllowedExtension reports whether a lower-cased extension is indexed
func AllowedExtension(ext string) bool {
	_, ok := allowedExtensions[ext]
	return ok
}

// DiscoverFiles walks root and returns every eligible regular file.
// A symlinked root is resolved first; symlinks below it are never followed,
// so a link cycle cannot abort the scan. Unreadable directories and entries
// are treated as empty. Relative paths are relative to the resolved root and
// the result order is whatever the walk produced.
func DiscoverFiles(root string) []types.WalkedFile {
	var files []types.WalkedFile

	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An unreadable subtree is skipped; an unreadable root yields nothing
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !AllowedExtension(ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxFileSizeBytes {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		files = append(files, types.WalkedFile{
			AbsolutePath: path,
			RelativePath: filepath.ToSlash(rel),
			Extension:    ext,
			SizeBytes:    info.Size(),
		})
		return nil
	})

	return files
}
