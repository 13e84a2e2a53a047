package zippack

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	. "github.com/warpfork/go-errcat"

	"github.com/fabpack/fabpack"
	"github.com/fabpack/fabpack/fshash"
)

/*
	ExtractArchive recreates an archive's directory structure and file
	content under destDir.

	srcZip must be an existing regular file (else ErrNotFound).  If hashing
	is requested, a verification digest is computed over the extracted
	content only -- entry paths are NOT mixed in, so this digest is not
	comparable to the build-side hash (see fshash package docs).

	Like the build direction, any failure aborts the whole call; files
	already placed under destDir by a failed call are not cleaned up and
	must be treated as unusable.
*/
func ExtractArchive(ctx context.Context, srcZip string, destDir string, opts fabpack.Options, mon fabpack.Monitor) (_ fabpack.ExtractResult, err error) {
	if mon.Chan != nil {
		defer close(mon.Chan)
	}
	defer RequireErrorHasCategory(&err, fabpack.ErrorCategory(""))

	// Sanitize arguments.
	fi, statErr := os.Stat(srcZip)
	switch {
	case statErr != nil:
		return fabpack.ExtractResult{}, Errorf(fabpack.ErrNotFound, "cannot extract %q: %s", srcZip, statErr)
	case !fi.Mode().IsRegular():
		return fabpack.ExtractResult{}, Errorf(fabpack.ErrNotFound, "cannot extract %q: not a regular file", srcZip)
	}

	zr, err := zip.OpenReader(srcZip)
	if err != nil {
		return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "error while opening archive: %s", err)
	}
	defer zr.Close()
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "error while preparing %q: %s", destDir, err)
	}

	var hasher *fshash.Hasher
	if opts.Hashing() {
		hasher = fshash.New()
	}

	entryCount := 0
	for _, zf := range zr.File {
		if ctx.Err() != nil {
			return fabpack.ExtractResult{}, Errorf(fabpack.ErrCancelled, "cancelled")
		}
		name := path.Clean(strings.TrimSuffix(zf.Name, "/"))
		if name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "corrupt archive: entry paths that leave the base dir are invalid")
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))

		if strings.HasSuffix(zf.Name, "/") || zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "error while unpacking: %s", err)
			}
			entryCount++
			continue
		}

		// Infer parents, if necessary.  The format should not need implicit
		// dirs since the build side writes every dir entry, but foreign
		// archives may omit them.
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "error while unpacking: %s", err)
		}
		rc, err := zf.Open()
		if err != nil {
			return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "corrupt archive: %s", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "corrupt archive: %s", err)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return fabpack.ExtractResult{}, Errorf(fabpack.ErrIO, "error while unpacking: %s", err)
		}
		if hasher != nil {
			hasher.WriteNormalized(content)
		}
		entryCount++
	}

	result := fabpack.ExtractResult{EntryCount: entryCount}
	if hasher != nil {
		result.Hash = hasher.SumBase64()
	}
	return result, nil
}
