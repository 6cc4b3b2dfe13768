// Package zipdeploy classifies and materializes deployment artifacts. An
// artifact path is either a folder, which must be archived before upload,
// or an already-zipped file, which is uploaded as-is.
package zipdeploy

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// archiveExt is the only recognized archive extension. The match is
// case-sensitive: ".ZIP" is not an archive.
const archiveExt = ".zip"

// Kind tags an artifact reference as a folder or an archive.
type Kind int

const (
	// Folder is a directory that must be archived before deployment.
	Folder Kind = iota
	// Archive is an already-zipped file.
	Archive
)

// Reference is a classified artifact path.
type Reference struct {
	kind Kind
	path string
}

// Kind returns the reference's classification.
func (r Reference) Kind() Kind { return r.kind }

// Path returns the original artifact path.
func (r Reference) Path() string { return r.path }

// Classify inspects the filesystem entry at path. A directory classifies
// as Folder; a file ending in exactly ".zip" classifies as Archive;
// anything else fails before any deployment is attempted. The path is
// cleaned first so a trailing separator cannot shift a folder's archive
// destination into the folder itself.
func Classify(path string) (Reference, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return Reference{}, fmt.Errorf("inspect deploy artifact %q: %w", path, err)
	}
	if info.IsDir() {
		return Reference{kind: Folder, path: path}, nil
	}
	if strings.HasSuffix(path, archiveExt) {
		return Reference{kind: Archive, path: path}, nil
	}
	return Reference{}, fmt.Errorf(
		"deploy artifact %q is neither a folder nor a %s archive", path, archiveExt)
}

// Materialize resolves the reference to the path of an uploadable archive.
// An Archive resolves to itself. A Folder is zipped into a sibling archive
// named after the folder's leaf segment; any stale artifact of that name
// is deleted first, so re-running after a failed or cancelled attempt
// never trips over leftovers.
func (r Reference) Materialize(ctx context.Context) (string, error) {
	if r.kind == Archive {
		return r.path, nil
	}

	dest := filepath.Join(filepath.Dir(r.path), filepath.Base(r.path)+archiveExt)
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale archive %q: %w", dest, err)
	}

	if err := zipFolder(ctx, r.path, dest); err != nil {
		return "", fmt.Errorf("archive folder %q: %w", r.path, err)
	}
	return dest, nil
}

// zipFolder writes the full contents of src into a new archive at dest.
// Entry names are slash-separated paths relative to src. The walk checks
// the context between entries so a cancelled archive stops promptly; the
// partial file it leaves behind is removed by the next Materialize.
func zipFolder(ctx context.Context, src, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	w := zip.NewWriter(out)
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return addFile(w, filepath.ToSlash(rel), path)
	})
	if err != nil {
		_ = w.Close()
		_ = out.Close()
		return err
	}
	if err := w.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// addFile copies one file into the archive under the given entry name.
func addFile(w *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entry, err := w.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}
