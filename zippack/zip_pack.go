package zippack

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/flate"
	. "github.com/warpfork/go-errcat"

	"github.com/fabpack/fabpack"
	"github.com/fabpack/fabpack/fshash"
	"github.com/fabpack/fabpack/ignore"
	"github.com/fabpack/fabpack/mixins/log"
)

// Progress notifications are emitted once per this many processed entries.
const progressBatchSize = 1000

/*
	CreateArchive packages srcDir into a compressed archive at destPath.

	srcDir must be an existing directory (else ErrNotFound).  The walk
	visits siblings in lexicographic order, applies the two-stage inclusion
	gate (ignore-file allowlist, then the caller's EntryFilter), and drives
	the content hasher and the archive writer together.  In hash-only mode
	no archive is written and destPath is ignored.

	Any failure aborts the whole operation: there is no partial-success
	contract, and a destination file left behind by a failed call must be
	treated as unusable.  The output stream is flushed and closed on both
	the success path and any error path.
*/
func CreateArchive(ctx context.Context, destPath string, srcDir string, opts fabpack.Options, mon fabpack.Monitor) (_ fabpack.ArchiveResult, err error) {
	if mon.Chan != nil {
		defer close(mon.Chan)
	}
	defer RequireErrorHasCategory(&err, fabpack.ErrorCategory(""))

	// Sanitize arguments.
	fi, statErr := os.Stat(srcDir)
	switch {
	case statErr != nil:
		return fabpack.ArchiveResult{}, Errorf(fabpack.ErrNotFound, "cannot archive %q: %s", srcDir, statErr)
	case !fi.IsDir():
		return fabpack.ArchiveResult{}, Errorf(fabpack.ErrNotFound, "cannot archive %q: not a directory", srcDir)
	}

	allow, err := ignore.BuildAllowlist(srcDir, opts.RespectIgnoreFile, mon)
	if err != nil {
		return fabpack.ArchiveResult{}, err
	}

	w := &walker{
		ctx:   ctx,
		root:  srcDir,
		opts:  opts,
		allow: allow,
		mon:   mon,
	}
	if opts.Hashing() {
		w.hasher = fshash.New()
	}

	// Open the destination and layer the zip writer over it, unless we're
	// only here for the hash.
	var f *os.File
	if !opts.HashOnly {
		f, err = os.Create(destPath)
		if err != nil {
			return fabpack.ArchiveResult{}, Errorf(fabpack.ErrIO, "error while opening archive for writing: %s", err)
		}
		defer f.Close()
		w.zw = zip.NewWriter(f)
		w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.BestCompression)
		})
		defer w.zw.Close()
	}

	// Scan and zip!
	log.WalkStarted(mon, srcDir)
	if err := w.walk(""); err != nil {
		return fabpack.ArchiveResult{}, err
	}
	// Close all the intermediate writer layers to ensure they've flushed.
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return fabpack.ArchiveResult{}, Errorf(fabpack.ErrIO, "error while flushing archive: %s", err)
		}
		if err := f.Close(); err != nil {
			return fabpack.ArchiveResult{}, Errorf(fabpack.ErrIO, "error while flushing archive: %s", err)
		}
	}
	log.WalkFinished(mon, w.entryCount)

	result := fabpack.ArchiveResult{EntryCount: w.entryCount}
	if !opts.HashOnly {
		result.Path = destPath
	}
	if w.hasher != nil {
		result.Hash = w.hasher.SumBase64()
	}
	return result, nil
}

/*
	walker is the explicit accumulator threaded through the recursive
	descent: one hasher, one allowlist, one counter, one writer, all scoped
	to a single CreateArchive call.  Sibling entries are never processed
	concurrently -- sequential order is what makes the hash deterministic.
*/
type walker struct {
	ctx        context.Context
	root       string
	opts       fabpack.Options
	allow      *ignore.Allowlist
	hasher     *fshash.Hasher
	zw         *zip.Writer
	mon        fabpack.Monitor
	entryCount int
}

func (w *walker) walk(rel string) error {
	names, err := readDirNames(filepath.Join(w.root, filepath.FromSlash(rel)))
	if err != nil {
		return Errorf(fabpack.ErrIO, "error while reading directory: %s", err)
	}
	sort.Strings(names)
	filter := w.opts.EntryFilter()

	for _, name := range names {
		if w.ctx.Err() != nil {
			return Errorf(fabpack.ErrCancelled, "cancelled")
		}
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		fi, err := os.Lstat(filepath.Join(w.root, filepath.FromSlash(childRel)))
		if err != nil {
			return Errorf(fabpack.ErrIO, "error while walking source: %s", err)
		}

		if fi.IsDir() {
			// Stage 1: allowlist gate.
			if !w.allow.Admits(childRel) {
				continue
			}
			// Stage 2: custom predicate.
			if !filter.FilterFolder(w.root, childRel) {
				continue
			}
			w.countEntry()
			// Even a dir that turns out empty contributes an entry.
			if w.zw != nil {
				if _, err := w.zw.Create(childRel + "/"); err != nil {
					return Errorf(fabpack.ErrIO, "error while writing archive: %s", err)
				}
			}
			if err := w.walk(childRel); err != nil {
				return err
			}
			continue
		}

		if !w.allow.Admits(childRel) {
			continue
		}
		decision := filter.FilterFile(w.root, childRel)
		if !decision.Include {
			continue
		}
		w.countEntry()

		// Redacted files keep their path but carry an empty payload, in
		// the archive and in the hash alike.
		var content []byte
		if !decision.ReplaceWithEmpty {
			content, err = os.ReadFile(filepath.Join(w.root, filepath.FromSlash(childRel)))
			if err != nil {
				return Errorf(fabpack.ErrIO, "error while reading %q: %s", childRel, err)
			}
		}
		if w.hasher != nil {
			w.hasher.WriteNormalized(content)
			w.hasher.WriteStringNormalized("\n" + childRel)
			if w.opts.Debug {
				log.FileHashed(w.mon, childRel, fshash.SumBytesBase64(content))
			}
		}
		if w.zw != nil {
			fw, err := w.zw.Create(childRel)
			if err != nil {
				return Errorf(fabpack.ErrIO, "error while writing archive: %s", err)
			}
			if _, err := fw.Write(content); err != nil {
				return Errorf(fabpack.ErrIO, "error while writing archive: %s", err)
			}
		}
	}
	return nil
}

func (w *walker) countEntry() {
	w.entryCount++
	if w.entryCount%progressBatchSize == 0 {
		log.ProgressBatch(w.mon, w.entryCount)
	}
}

func readDirNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}
