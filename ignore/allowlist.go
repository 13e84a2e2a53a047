package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	. "github.com/warpfork/go-errcat"

	"github.com/fabpack/fabpack"
	"github.com/fabpack/fabpack/mixins/log"
)

// Ignore file names, in precedence order.
const (
	FabricIgnoreName = ".fabricignore"
	GitIgnoreName    = ".gitignore"
)

/*
	Allowlist is the explicit set of relative paths (POSIX separators)
	permitted into an archive.  Empty means unrestricted.

	Members are consumed on exact match: first match wins, one shot.  The
	structure is a path multiset -- an ordered slice for the prefix scan
	plus a count map so exact-match consumption is O(1) amortized instead
	of a splice out of a list.
*/
type Allowlist struct {
	order      []string
	counts     map[string]int
	size       int
	restricted bool
}

func newAllowlist() *Allowlist {
	return &Allowlist{counts: map[string]int{}}
}

func (al *Allowlist) add(rel string) {
	if al.counts[rel] == 0 {
		al.order = append(al.order, rel)
	}
	al.counts[rel]++
	al.size++
	al.restricted = true
}

// Empty reports whether the allowlist restricts nothing, i.e. no ignore
// file contributed members.  Consumption does not make a list empty: a
// restricted list that has been fully drained admits nothing further.
func (al *Allowlist) Empty() bool {
	return al == nil || !al.restricted
}

// Len returns the number of remaining members.
func (al *Allowlist) Len() int {
	if al == nil {
		return 0
	}
	return al.size
}

/*
	Admits applies the stage-1 gate to one entry.

	The entry passes if the allowlist restricts nothing, or if its relative
	path is a string prefix of some remaining member.  An exact match
	consumes that member.  The prefix test is deliberately a raw string
	prefix (not a path-segment prefix), and the non-exact case is a linear
	scan; both reproduce the engine's long-standing matching behavior.
*/
func (al *Allowlist) Admits(rel string) bool {
	if al.Empty() {
		return true
	}
	if al.counts[rel] > 0 {
		al.counts[rel]--
		al.size--
		return true
	}
	for _, member := range al.order {
		if al.counts[member] > 0 && strings.HasPrefix(member, rel) {
			return true
		}
	}
	return false
}

/*
	BuildAllowlist reads the source directory's ignore file (if any) and
	produces the allowlist of relative file paths that survive it.

	`.fabricignore` takes precedence over `.gitignore`.  If neither exists,
	or respectIgnoreFile is false, the returned allowlist is empty (no
	restriction).  Blank lines and '#' comments are dropped; '!'-negated
	lines are dropped too -- negation is unsupported, not silently honored.

	The allowlist is the set of file paths NOT matched by any translated
	pattern.  Matching emulates the glob conventions the engine has always
	used: dot-files are excluded by default, so any path with a '.'-prefixed
	segment never enters the allowlist.  The ignore file's own relative
	path is always appended so the ignore file itself is archived.
*/
func BuildAllowlist(srcDir string, respectIgnoreFile bool, mon fabpack.Monitor) (*Allowlist, error) {
	al := newAllowlist()
	if !respectIgnoreFile {
		return al, nil
	}
	name, body, err := readIgnoreFile(srcDir)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return al, nil
	}
	log.IgnoreFileDetected(mon, name)

	var patterns []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "!"):
			log.NegatedPatternDropped(mon, line)
			continue
		}
		glob, err := TranslatePattern(line)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, glob)
	}

	files, err := listFiles(srcDir)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		if !matchesAny(patterns, rel) {
			al.add(rel)
		}
	}
	al.add(name)
	return al, nil
}

// readIgnoreFile returns the name and content of the highest-precedence
// ignore file present, or an empty name if there is none.
func readIgnoreFile(srcDir string) (string, []byte, error) {
	for _, name := range []string{FabricIgnoreName, GitIgnoreName} {
		body, err := os.ReadFile(filepath.Join(srcDir, name))
		switch {
		case err == nil:
			return name, body, nil
		case os.IsNotExist(err):
			continue
		default:
			return "", nil, Errorf(fabpack.ErrIO, "error while reading ignore file: %s", err)
		}
	}
	return "", nil, nil
}

// listFiles collects the relative paths of all regular files under srcDir
// in lexicographic order, skipping every dot-file and dot-directory.
func listFiles(srcDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == srcDir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, Errorf(fabpack.ErrIO, "error while listing source files: %s", err)
	}
	return files, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		// Patterns were validated at translation time; a match error here
		// is unreachable and treated as no-match.
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
