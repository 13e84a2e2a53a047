package ignore

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	. "github.com/warpfork/go-errcat"

	"github.com/fabpack/fabpack"
)

// A final path segment ending in "." plus lowercase alphanumerics (or '_'
// or '-') looks like a filename; anything else is treated as a directory
// name during translation.
var extensionish = regexp.MustCompile(`\.[a-z0-9_-]+$`)

// TranslatePattern converts one ignore-file line into an equivalent glob.
//
// The line is expected to be already trimmed and to not be a comment or
// blank line -- that classification is the reader's job (see
// BuildAllowlist).  Negation markers are carried through, even though the
// allowlist builder refuses negated lines; translation itself is total.
//
// Fixtures:
//
//	*.log        -> **/*.log
//	/config.json -> config.json
//	bin/         -> **/bin/**
//	!build/      -> !**/build/**
func TranslatePattern(line string) (string, error) {
	if line == "" {
		return "", nil
	}
	p := line
	negated := strings.HasPrefix(p, "!")
	if negated {
		p = p[1:]
	}
	anchored := strings.HasPrefix(p, "/")
	if anchored {
		p = p[1:]
	}

	// A bare leading '*' should match at any depth; '**' already does.
	if strings.HasPrefix(p, "*") {
		if !strings.HasPrefix(p, "**") {
			p = "**/" + p
		}
	} else if (!anchored && !strings.Contains(p, "/")) || strings.HasSuffix(p, "/") {
		p = "**/" + p
	}

	// Unless the pattern already ends in a wildcard, a final segment with
	// no extension-like suffix names a directory: match it and everything
	// beneath it.
	if !strings.HasSuffix(p, "*") && !strings.HasSuffix(p, "?") {
		if !extensionish.MatchString(lastSegment(p)) {
			if !strings.HasSuffix(p, "/") {
				p += "/"
			}
			p += "**"
		}
	}

	if !doublestar.ValidatePattern(p) {
		return "", Errorf(fabpack.ErrPattern, "ignore pattern %q translates to unusable glob %q", line, p)
	}
	if negated {
		p = "!" + p
	}
	return p, nil
}

func lastSegment(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}
