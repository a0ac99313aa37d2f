// Package pathutil implements the path-and-text utilities of spec.md §2
// item 1: platform-independent path joining/relativizing, line/column
// mapping, and the submodule "parent|child" notation of spec.md §6.
//
// This replaces the teacher's internal/fs package, which bundles a full
// virtual file system (real/mock/zip/WASM backends) built for esbuild's own
// plugin API and watch-mode incremental rebuilds — out of scope here per
// spec.md §1 ("watching the file system" is a Non-goal, and this core's
// Resolver is pluggable rather than baking in one file system). Only the
// platform-independent dir/base/ext split is worth keeping from the
// teacher's fs/filepath.go, and it's small enough to restate directly
// rather than drag along the rest of that package.
package pathutil

import "strings"

// SplitDirBaseExt mirrors the teacher's
// PlatformIndependentPathDirBaseExt: it splits a path the same way on
// every OS so generated output (which embeds paths, e.g. in source maps)
// does not depend on the host's path separator conventions.
func SplitDirBaseExt(path string) (dir, base, ext string) {
	for {
		i := strings.LastIndexAny(path, "/\\")
		if i < 0 {
			base = path
			break
		}
		if i+1 != len(path) {
			dir, base = path[:i], path[i+1:]
			break
		}
		path = path[:i]
	}
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base, ext = base[:dot], base[dot:]
	}
	return
}

// Join joins path segments using forward slashes regardless of OS,
// collapsing "." and ".." components. It never touches the real file
// system; resolving a joined path to something that exists is the
// Resolver's job (spec.md §4.6).
func Join(segments ...string) string {
	var parts []string
	abs := len(segments) > 0 && strings.HasPrefix(segments[0], "/")
	for _, seg := range segments {
		seg = strings.ReplaceAll(seg, "\\", "/")
		for _, part := range strings.Split(seg, "/") {
			switch part {
			case "", ".":
				continue
			case "..":
				if len(parts) > 0 && parts[len(parts)-1] != ".." {
					parts = parts[:len(parts)-1]
				} else if !abs {
					parts = append(parts, "..")
				}
			default:
				parts = append(parts, part)
			}
		}
	}
	joined := strings.Join(parts, "/")
	if abs {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// Dir returns the directory portion of a path, in the same
// platform-independent manner as SplitDirBaseExt.
func Dir(path string) string {
	dir, _, _ := SplitDirBaseExt(path)
	if dir == "" {
		return "."
	}
	return dir
}

// Rel expresses target relative to the directory of the file path base,
// always with forward slashes, for embedding in generated output (e.g. a
// source map's "sources" entries relative to the originalPath per spec.md §3).
func Rel(base, target string) string {
	baseParts := splitClean(Dir(base))
	targetParts := splitClean(target)

	common := 0
	for common < len(baseParts) && common < len(targetParts) && baseParts[common] == targetParts[common] {
		common++
	}

	var out []string
	for i := common; i < len(baseParts); i++ {
		out = append(out, "..")
	}
	out = append(out, targetParts[common:]...)
	if len(out) == 0 {
		return "."
	}
	return strings.Join(out, "/")
}

func splitClean(path string) []string {
	path = strings.ReplaceAll(path, "\\", "/")
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

// SubmodulePath and ParseSubmodulePath implement the "parent|child"
// notation of spec.md §6: a submodule's originalPath identifies both its
// parent and its own name, with "|" disallowed inside childName.
func SubmodulePath(parentOriginalPath, childName string) string {
	return parentOriginalPath + "|" + childName
}

// ParseSubmodulePath splits an originalPath into its parent path and child
// name. ok is false if path does not contain the "|" submodule separator.
func ParseSubmodulePath(path string) (parent, child string, ok bool) {
	i := strings.LastIndexByte(path, '|')
	if i < 0 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}
