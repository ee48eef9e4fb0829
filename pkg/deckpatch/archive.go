package deckpatch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Archive is the zip container holding every part of a presentation
// document. Member order is preserved from the source so that rewriting an
// unmodified archive keeps members byte-identical and in the original order.
type Archive struct {
	members  []string
	contents map[string][]byte
	modified map[string]bool
}

// OpenArchive reads a presentation archive from disk.
func OpenArchive(path string) (*Archive, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewArchiveError("open", path, err)
	}
	archive, err := ArchiveFromBytes(content)
	if err != nil {
		if ae, ok := err.(*ArchiveError); ok && ae.Path == "" {
			ae.Path = path
		}
		return nil, err
	}
	return archive, nil
}

// ArchiveFromBytes reads a presentation archive from an in-memory buffer.
// The archive must be a valid zip and every member must read back the
// number of bytes its header declares.
func ArchiveFromBytes(content []byte) (*Archive, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, NewArchiveError("open", "", fmt.Errorf("not a valid zip: %w", err))
	}

	archive := &Archive{
		contents: make(map[string][]byte),
		modified: make(map[string]bool),
	}

	for _, file := range zipReader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, NewArchiveError("read", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, NewArchiveError("read", file.Name, err)
		}
		if uint64(len(data)) != file.UncompressedSize64 {
			return nil, NewArchiveError("read", file.Name,
				fmt.Errorf("declared size %d does not match actual %d", file.UncompressedSize64, len(data)))
		}
		archive.members = append(archive.members, file.Name)
		archive.contents[file.Name] = data
	}

	return archive, nil
}

// Members returns every member path in archive order.
func (a *Archive) Members() []string {
	out := make([]string, len(a.members))
	copy(out, a.members)
	return out
}

// Has reports whether a member exists.
func (a *Archive) Has(path string) bool {
	_, ok := a.contents[path]
	return ok
}

// MemberBytes returns the current content of one member.
func (a *Archive) MemberBytes(path string) ([]byte, error) {
	data, ok := a.contents[path]
	if !ok {
		return nil, NewMissingMemberError(path)
	}
	return data, nil
}

// SetMember replaces a member's content, or appends a new member at the
// end of the archive order.
func (a *Archive) SetMember(path string, data []byte) {
	if _, ok := a.contents[path]; !ok {
		a.members = append(a.members, path)
	}
	a.contents[path] = data
	a.modified[path] = true
}

// Bytes re-compresses the archive. Unmodified members are written back
// from their original bytes; member order is the source order.
func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range a.members {
		fw, err := w.Create(name)
		if err != nil {
			return nil, NewArchiveError("write", name, err)
		}
		if _, err := fw.Write(a.contents[name]); err != nil {
			return nil, NewArchiveError("write", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, NewArchiveError("write", "", err)
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the archive to the output path. The write is atomic
// with respect to the path: content goes to a temporary file in the same
// directory first, then a rename, so a partially written result is never
// observed at the destination.
func (a *Archive) WriteFile(path string) error {
	data, err := a.Bytes()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".deckpatch-*")
	if err != nil {
		return NewArchiveError("write", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return NewArchiveError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return NewArchiveError("write", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return NewArchiveError("write", path, err)
	}
	return nil
}

// relsPathFor maps a part path to its relationships member path,
// e.g. "ppt/slides/slide1.xml" -> "ppt/slides/_rels/slide1.xml.rels".
func relsPathFor(partName string) string {
	dir := ""
	base := partName
	if idx := strings.LastIndex(partName, "/"); idx != -1 {
		dir = partName[:idx]
		base = partName[idx+1:]
	}
	if dir == "" {
		return "_rels/" + base + ".rels"
	}
	return dir + "/_rels/" + base + ".rels"
}

// resolveTarget resolves a relationship target against the directory of the
// part that owns the relationships, yielding an archive member path.
func resolveTarget(ownerPart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	dir := ""
	if idx := strings.LastIndex(ownerPart, "/"); idx != -1 {
		dir = ownerPart[:idx]
	}
	joined := target
	if dir != "" {
		joined = dir + "/" + target
	}
	// Collapse any ../ steps without touching the filesystem.
	parts := strings.Split(joined, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

// sortedMembers returns member paths in lexical order, for deterministic
// reporting independent of archive layout.
func (a *Archive) sortedMembers() []string {
	out := a.Members()
	sort.Strings(out)
	return out
}
