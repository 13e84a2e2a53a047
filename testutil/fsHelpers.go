package testutil

import (
	"os"
	"path/filepath"

	"github.com/smartystreets/goconvey/convey"
)

/*
	WithTmpdir sets up a scratch directory, runs the function inside it,
	and tears the directory down again afterwards regardless of outcome.
*/
func WithTmpdir(fn func(tmpDir string)) {
	tmpDir, err := os.MkdirTemp("", "fabpack-test-")
	convey.So(err, convey.ShouldBeNil)
	defer os.RemoveAll(tmpDir)
	fn(tmpDir)
}

// PlaceFixture writes a map of relative path (POSIX separators) to file
// content under dir, creating parent directories as needed.
func PlaceFixture(dir string, files map[string]string) {
	for rel, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		convey.So(os.MkdirAll(filepath.Dir(p), 0755), convey.ShouldBeNil)
		convey.So(os.WriteFile(p, []byte(body), 0644), convey.ShouldBeNil)
	}
}

// ShouldReadFile asserts the file exists and returns its content.
func ShouldReadFile(dir string, rel string) string {
	body, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	convey.So(err, convey.ShouldBeNil)
	return string(body)
}
