/*
	Package fabpack is the API surface for the deterministic archive-and-hash
	engine: option and result types, the entry-filter capability, progress
	monitoring, and the error vocabulary.

	The operations themselves live in the zippack package; ignore-file
	handling lives in the ignore package.  Everything here is plain data
	shared between them and their callers.
*/
package fabpack

// Options configures a single archive-build or extract call.
// The zero value means: no ignore file handling, no hashing, no filtering.
type Options struct {
	// RespectIgnoreFile enables reading `.fabricignore` (or `.gitignore` as
	// a fallback) from the source directory and restricting the archive to
	// the paths that survive it.
	RespectIgnoreFile bool

	// CalculateHash enables the running content hash; the digest lands in
	// the result as a base64 string.
	CalculateHash bool

	// HashOnly skips all archive writing and only computes the hash.
	// Implies hashing even if CalculateHash is unset: a hash-only call
	// with no hash would do nothing at all.
	HashOnly bool

	// Debug emits a per-file hash dump line to the monitor while walking.
	Debug bool

	// Filter is the second stage of the inclusion gate.
	// Nil means IncludeAll.
	Filter EntryFilter
}

// EntryFilter resolves nil to IncludeAll so the walk needs no nil-checks.
func (o Options) EntryFilter() EntryFilter {
	if o.Filter == nil {
		return IncludeAll
	}
	return o.Filter
}

// Hashing reports whether this call keeps a content hash accumulator.
func (o Options) Hashing() bool {
	return o.CalculateHash || o.HashOnly
}

// FileDecision is an EntryFilter's verdict on a single file.
type FileDecision struct {
	// Include admits the file into the archive and the hash.
	Include bool

	// ReplaceWithEmpty archives the file under its original path but with a
	// zero-length payload; the hash sees the empty content too.  Used for
	// files whose presence matters but whose content is secret (e.g. local
	// settings files).
	ReplaceWithEmpty bool
}

/*
	EntryFilter is the caller-supplied stage of the two-stage inclusion gate.

	FilterFolder gates directories: a false return prunes the directory and
	everything beneath it.  FilterFile gates files and may additionally
	request content redaction.  Both receive the source root and the
	entry's relative path (POSIX separators).

	The default is IncludeAll: everything passes, nothing is redacted.
*/
type EntryFilter interface {
	FilterFolder(root string, folder string) bool
	FilterFile(root string, relPath string) FileDecision
}

// IncludeAll is the default EntryFilter: every entry passes unredacted.
var IncludeAll EntryFilter = includeAll{}

type includeAll struct{}

func (includeAll) FilterFolder(root string, folder string) bool { return true }
func (includeAll) FilterFile(root string, relPath string) FileDecision {
	return FileDecision{Include: true}
}

// FilterFuncs adapts plain functions to the EntryFilter interface.
// Nil members behave like IncludeAll.
type FilterFuncs struct {
	Folder func(root string, folder string) bool
	File   func(root string, relPath string) FileDecision
}

func (f FilterFuncs) FilterFolder(root string, folder string) bool {
	if f.Folder == nil {
		return true
	}
	return f.Folder(root, folder)
}

func (f FilterFuncs) FilterFile(root string, relPath string) FileDecision {
	if f.File == nil {
		return FileDecision{Include: true}
	}
	return f.File(root, relPath)
}

// ArchiveResult is returned by a successful archive build.
type ArchiveResult struct {
	// Path is the archive location (as given to the build call; empty in
	// hash-only mode).
	Path string

	// Hash is the base64 content hash, if hashing was enabled.
	//
	// The hash is a pure function of the sorted relative paths, the byte
	// content after line-ending normalization, and the redaction flags.
	// It is independent of host OS, directory-listing order, compression
	// settings, and wall-clock time.
	Hash string

	// EntryCount includes both directory and file entries encountered
	// during the walk.
	EntryCount int
}

// ExtractResult is returned by a successful extraction.
type ExtractResult struct {
	// Hash is the base64 verification hash, if hashing was requested.
	// Note this digest covers content only and does not mix in entry
	// paths; it is NOT comparable to ArchiveResult.Hash.
	Hash string

	// EntryCount is the number of archive entries processed.
	EntryCount int
}
