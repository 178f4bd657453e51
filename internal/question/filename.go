package question

import (
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/p-n-ai/filge/internal/subject"
)

// FileExt is the only extension recognized as a question source.
const FileExt = ".json"

var filePattern = regexp.MustCompile(`^(\d{2})-(\d+)-([a-z_]+)\.json$`)

// FileName holds what a source file name encodes.
type FileName struct {
	Year    int
	Session int
	// Code is the raw subject component of the name.
	Code string
	// Subject is Code resolved through the registry; empty when unknown.
	Subject subject.Canonical
}

// ParseFilename parses the base name of name against the
// `<yy>-<session>-<subject>.json` contract. It returns false for names that
// do not match, which lets non-question files live in the same tree.
func ParseFilename(name string) (FileName, bool) {
	base := path.Base(filepath.ToSlash(name))
	m := filePattern.FindStringSubmatch(base)
	if m == nil {
		return FileName{}, false
	}

	yy, _ := strconv.Atoi(m[1])
	session, err := strconv.Atoi(m[2])
	if err != nil {
		// Session digits overflowing int.
		return FileName{}, false
	}

	fn := FileName{
		Year:    ExpandYear(yy),
		Session: session,
		Code:    m[3],
	}
	if c, ok := subject.Canonicalize(m[3]); ok {
		fn.Subject = c
	}
	return fn, true
}

// ExpandYear maps a two-digit year to a four-digit one: 90-99 are 1990s,
// everything else is 20xx.
func ExpandYear(yy int) int {
	if yy >= 90 {
		return 1900 + yy
	}
	return 2000 + yy
}
