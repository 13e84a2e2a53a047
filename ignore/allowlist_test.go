package ignore

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fabpack/fabpack"
	"github.com/fabpack/fabpack/testutil"
)

func TestBuildAllowlist(t *testing.T) {
	Convey("BuildAllowlist suite:", t, func() {
		Convey("no ignore file means no restriction", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					"a.txt": "hi",
				})
				al, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Empty(), ShouldBeTrue)
			})
		})
		Convey("respectIgnoreFile=false means no restriction even with an ignore file", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".gitignore": "*.log\n",
					"a.log":      "x",
				})
				al, err := BuildAllowlist(tmpDir, false, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Empty(), ShouldBeTrue)
			})
		})
		Convey("patterns exclude matching paths; everything else is allowlisted", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".gitignore": "*.log\nbin/\n",
					"a.txt":      "keep",
					"b.log":      "drop",
					"bin/tool":   "drop",
					"sub/c.log":  "drop",
					"sub/d.txt":  "keep",
				})
				al, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Empty(), ShouldBeFalse)
				So(al.Admits("a.txt"), ShouldBeTrue)
				So(al.Admits("sub/d.txt"), ShouldBeTrue)
				So(al.Admits("b.log"), ShouldBeFalse)
				So(al.Admits("bin/tool"), ShouldBeFalse)
				So(al.Admits("sub/c.log"), ShouldBeFalse)
			})
		})
		Convey("the ignore file itself is always allowlisted", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".gitignore": "*.log\n",
					"a.txt":      "keep",
				})
				al, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Admits(".gitignore"), ShouldBeTrue)
			})
		})
		Convey(".fabricignore takes precedence over .gitignore", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".fabricignore": "*.log\n",
					".gitignore":    "*.txt\n",
					"a.txt":         "keep per fabricignore",
					"b.log":         "drop per fabricignore",
				})
				al, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Admits("a.txt"), ShouldBeTrue)
				So(al.Admits("b.log"), ShouldBeFalse)
				So(al.Admits(".fabricignore"), ShouldBeTrue)
			})
		})
		Convey("blank lines, comments, and negated lines are dropped", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".gitignore": "\n# comment\n!a.log\n*.tmp\n",
					"a.log":      "kept: the only pattern naming it was negated",
					"b.tmp":      "drop",
				})
				al, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Admits("a.log"), ShouldBeTrue)
				So(al.Admits("b.tmp"), ShouldBeFalse)
			})
		})
		Convey("dot-files never enter the allowlist", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".gitignore":   "*.log\n",
					".env":         "secret",
					".vscode/conf": "editor noise",
					"a.txt":        "keep",
				})
				al, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldBeNil)
				So(al.Admits(".env"), ShouldBeFalse)
				So(al.Admits(".vscode/conf"), ShouldBeFalse)
			})
		})
		Convey("a bad pattern surfaces as a translation error", func() {
			testutil.WithTmpdir(func(tmpDir string) {
				testutil.PlaceFixture(tmpDir, map[string]string{
					".gitignore": "[\n",
				})
				_, err := BuildAllowlist(tmpDir, true, fabpack.Monitor{})
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestAllowlistConsumption(t *testing.T) {
	Convey("Allowlist consumption suite:", t, func() {
		al := newAllowlist()
		al.add("sub/b.txt")
		al.add("a.txt")

		Convey("a directory passes when it prefixes a remaining member", func() {
			So(al.Admits("sub"), ShouldBeTrue)
			// Prefix matches do not consume.
			So(al.Len(), ShouldEqual, 2)
		})
		Convey("an exact match consumes exactly one member", func() {
			So(al.Admits("a.txt"), ShouldBeTrue)
			So(al.Len(), ShouldEqual, 1)
			So(al.Admits("a.txt"), ShouldBeFalse)
		})
		Convey("a drained allowlist keeps restricting", func() {
			So(al.Admits("a.txt"), ShouldBeTrue)
			So(al.Admits("sub/b.txt"), ShouldBeTrue)
			So(al.Len(), ShouldEqual, 0)
			// Only a list that never had members is unrestricted.
			So(al.Empty(), ShouldBeFalse)
			So(al.Admits("zzz.bin"), ShouldBeFalse)
		})
		Convey("prefix matching is raw string prefix", func() {
			So(al.Admits("a.t"), ShouldBeTrue)
			So(al.Len(), ShouldEqual, 2)
		})
	})
}
