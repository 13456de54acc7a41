package xlcore

import (
	"path"
	"strings"
)

// partPath is an absolute, slash-prefixed, case-sensitive path to a part
// inside the package.
type partPath string

func normalizePartPath(p string) partPath {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return partPath(p)
}

// relsPath derives the companion relationships path by inserting "_rels/"
// before the filename and appending ".rels".
func (p partPath) relsPath() partPath {
	dir, file := path.Split(string(p))
	return partPath(dir + "_rels/" + file + ".rels")
}

func (p partPath) dir() string {
	dir, _ := path.Split(string(p))
	if dir == "" {
		return "/"
	}
	return dir
}

// entryName strips the leading slash so the path can be used as a ZIP entry
// name.
func (p partPath) entryName() string {
	return strings.TrimPrefix(string(p), "/")
}

func (p partPath) ext() string {
	return strings.ToLower(path.Ext(string(p)))
}

// resolveTarget resolves a relationship target against the directory of the
// source part. A leading "/" means absolute; "." is a no-op; ".." walks up
// one level, exactly as OPC target resolution is specified.
func resolveTarget(source partPath, target string) partPath {
	if strings.HasPrefix(target, "/") {
		return normalizePartPath(target)
	}
	base := source.dir()
	joined := path.Join(base, target)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return partPath(joined)
}
