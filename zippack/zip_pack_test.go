package zippack

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/warpfork/go-errcat"

	"github.com/fabpack/fabpack"
	"github.com/fabpack/fabpack/testutil"
)

func TestCreateArchiveBasics(t *testing.T) {
	Convey("CreateArchive: a small tree with no ignore file", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			src := filepath.Join(tmpDir, "src")
			testutil.PlaceFixture(src, map[string]string{
				"a.txt":     "hi",
				"sub/b.txt": "yo",
			})
			dest := filepath.Join(tmpDir, "out.zip")
			res, err := CreateArchive(context.Background(), dest, src,
				fabpack.Options{RespectIgnoreFile: true, CalculateHash: true}, fabpack.Monitor{})
			So(err, ShouldBeNil)

			Convey("counts a.txt, sub/, and sub/b.txt", func() {
				So(res.EntryCount, ShouldEqual, 3)
				So(res.Hash, ShouldNotBeBlank)
				So(res.Path, ShouldEqual, dest)
			})
			Convey("the archive holds exactly those entries", func() {
				zr, err := zip.OpenReader(dest)
				So(err, ShouldBeNil)
				defer zr.Close()
				var names []string
				for _, zf := range zr.File {
					names = append(names, zf.Name)
				}
				So(names, ShouldResemble, []string{"a.txt", "sub/", "sub/b.txt"})
			})
		})
	})
}

func TestCreateArchiveHashDeterminism(t *testing.T) {
	Convey("CreateArchive: hash determinism", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			src := filepath.Join(tmpDir, "src")
			testutil.PlaceFixture(src, map[string]string{
				"a.txt":       "alpha\n",
				"sub/b.txt":   "beta\n",
				"sub/c/d.txt": "delta\n",
			})
			opts := fabpack.Options{CalculateHash: true}

			Convey("packing the same tree twice yields the same hash", func() {
				res1, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "one.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				res2, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "two.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(res1.Hash, ShouldEqual, res2.Hash)
			})
			Convey("flipping a file to CRLF endings does not change the hash", func() {
				res1, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "one.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha\r\n"), 0644), ShouldBeNil)
				res2, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "two.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(res1.Hash, ShouldEqual, res2.Hash)
			})
			Convey("changing content does change the hash", func() {
				res1, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "one.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(os.WriteFile(filepath.Join(src, "a.txt"), []byte("omega\n"), 0644), ShouldBeNil)
				res2, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "two.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(res1.Hash, ShouldNotEqual, res2.Hash)
			})
			Convey("hash-only mode writes nothing and agrees with the full pack", func() {
				res1, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "one.zip"), src, opts, fabpack.Monitor{})
				So(err, ShouldBeNil)
				res2, err := CreateArchive(context.Background(), "", src,
					fabpack.Options{HashOnly: true}, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(res2.Hash, ShouldEqual, res1.Hash)
				So(res2.Path, ShouldBeBlank)
				So(res2.EntryCount, ShouldEqual, res1.EntryCount)
			})
		})
	})
}

func TestCreateArchiveRedaction(t *testing.T) {
	Convey("CreateArchive: content redaction", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			src := filepath.Join(tmpDir, "src")
			testutil.PlaceFixture(src, map[string]string{
				"a.txt":               "hi",
				"local.settings.json": `{"secret":"hunter2"}`,
			})
			redacting := fabpack.FilterFuncs{
				File: func(root, relPath string) fabpack.FileDecision {
					return fabpack.FileDecision{
						Include:          true,
						ReplaceWithEmpty: relPath == "local.settings.json",
					}
				},
			}
			dest := filepath.Join(tmpDir, "out.zip")
			res, err := CreateArchive(context.Background(), dest, src,
				fabpack.Options{CalculateHash: true, Filter: redacting}, fabpack.Monitor{})
			So(err, ShouldBeNil)
			So(res.EntryCount, ShouldEqual, 2)

			Convey("the archived entry exists with zero-length content", func() {
				zr, err := zip.OpenReader(dest)
				So(err, ShouldBeNil)
				defer zr.Close()
				found := false
				for _, zf := range zr.File {
					if zf.Name == "local.settings.json" {
						found = true
						So(zf.UncompressedSize64, ShouldEqual, 0)
					}
				}
				So(found, ShouldBeTrue)
			})
			Convey("the hash reflects the empty content, not the original bytes", func() {
				// A tree whose settings file is genuinely empty must hash
				// identically to the redacted pack.
				src2 := filepath.Join(tmpDir, "src2")
				testutil.PlaceFixture(src2, map[string]string{
					"a.txt":               "hi",
					"local.settings.json": "",
				})
				res2, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "out2.zip"), src2,
					fabpack.Options{CalculateHash: true}, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(res.Hash, ShouldEqual, res2.Hash)
			})
		})
	})
}

func TestCreateArchiveIgnoreRules(t *testing.T) {
	Convey("CreateArchive: ignore file excludes paths from archive and hash", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			src := filepath.Join(tmpDir, "src")
			testutil.PlaceFixture(src, map[string]string{
				".fabricignore": "bin/\n",
				"a.txt":         "keep",
				"bin/tool":      "drop",
				"bin/sub/x":     "drop",
			})
			dest := filepath.Join(tmpDir, "out.zip")
			res, err := CreateArchive(context.Background(), dest, src,
				fabpack.Options{RespectIgnoreFile: true, CalculateHash: true}, fabpack.Monitor{})
			So(err, ShouldBeNil)

			Convey("nothing under bin/ reaches the archive", func() {
				zr, err := zip.OpenReader(dest)
				So(err, ShouldBeNil)
				defer zr.Close()
				var names []string
				for _, zf := range zr.File {
					names = append(names, zf.Name)
				}
				So(names, ShouldResemble, []string{".fabricignore", "a.txt"})
			})
			Convey("excluded paths do not influence the hash", func() {
				src2 := filepath.Join(tmpDir, "src2")
				testutil.PlaceFixture(src2, map[string]string{
					".fabricignore": "bin/\n",
					"a.txt":         "keep",
				})
				res2, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "out2.zip"), src2,
					fabpack.Options{RespectIgnoreFile: true, CalculateHash: true}, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(res2.Hash, ShouldEqual, res.Hash)
			})
		})
	})
}

func TestCreateArchiveErrors(t *testing.T) {
	Convey("CreateArchive: failure modes", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			Convey("a missing source is NotFound", func() {
				_, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "out.zip"),
					filepath.Join(tmpDir, "nope"), fabpack.Options{}, fabpack.Monitor{})
				So(err, ShouldNotBeNil)
				So(errcat.Category(err), ShouldEqual, fabpack.ErrNotFound)
			})
			Convey("a source that is a file is NotFound", func() {
				testutil.PlaceFixture(tmpDir, map[string]string{"plain": "x"})
				_, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "out.zip"),
					filepath.Join(tmpDir, "plain"), fabpack.Options{}, fabpack.Monitor{})
				So(err, ShouldNotBeNil)
				So(errcat.Category(err), ShouldEqual, fabpack.ErrNotFound)
			})
			Convey("a cancelled context aborts the walk", func() {
				src := filepath.Join(tmpDir, "src")
				testutil.PlaceFixture(src, map[string]string{"a.txt": "x"})
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				_, err := CreateArchive(ctx, filepath.Join(tmpDir, "out.zip"), src,
					fabpack.Options{}, fabpack.Monitor{})
				So(err, ShouldNotBeNil)
				So(errcat.Category(err), ShouldEqual, fabpack.ErrCancelled)
			})
		})
	})
}

func TestCreateArchiveMonitor(t *testing.T) {
	Convey("CreateArchive: monitor receives diagnostics and is closed", t, func() {
		testutil.WithTmpdir(func(tmpDir string) {
			src := filepath.Join(tmpDir, "src")
			testutil.PlaceFixture(src, map[string]string{
				".fabricignore": "bin/\n",
				"a.txt":         "hi",
			})
			mon := fabpack.Monitor{Chan: make(chan fabpack.Event)}
			var logs []string
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range mon.Chan {
					if ev.Log != nil {
						logs = append(logs, ev.Log.Msg)
					}
				}
			}()
			_, err := CreateArchive(context.Background(), filepath.Join(tmpDir, "out.zip"), src,
				fabpack.Options{RespectIgnoreFile: true, CalculateHash: true, Debug: true}, mon)
			So(err, ShouldBeNil)
			<-done // channel closed by CreateArchive
			So(len(logs), ShouldBeGreaterThanOrEqualTo, 3)
			So(logs[0], ShouldContainSubstring, ".fabricignore")
		})
	})
}
