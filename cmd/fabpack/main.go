package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	. "github.com/warpfork/go-errcat"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/fabpack/fabpack"
	"github.com/fabpack/fabpack/ignore"
	"github.com/fabpack/fabpack/zippack"
)

/*
	Output serialization formats
*/
const (
	FmtJson = "json"
	FmtDumb = "dumb"
)

type baseCLI struct {
	Format         string        // Output format, eg. json
	ProgressEnable bool          // Emit progress/log notifications to stderr yes/no
	Timeout        time.Duration // Timeout duration for the whole command, eg. "60s"
	PackCLI        struct {
		SourceDir string   // Directory to archive
		DestPath  string   // Archive destination path
		NoIgnore  bool     // Skip ignore file handling
		Hash      bool     // Compute the content hash
		HashOnly  bool     // Compute the hash without writing an archive
		Debug     bool     // Per-file hash dump lines
		Exclude   []string // Globs for files/folders to drop entirely
		Redact    []string // Globs for files to archive with empty content
	}
	UnpackCLI struct {
		Archive string // Archive to extract
		DestDir string // Extraction target directory
		Hash    bool   // Compute the verification hash
	}
	TranslateCLI struct {
		Line string // One ignore-file line
	}
}

func configurePack(cli *baseCLI, appPack *kingpin.CmdClause) {
	appPack.Arg("src", "Directory to archive").
		Required().
		StringVar(&cli.PackCLI.SourceDir)
	appPack.Arg("dest", "Archive destination path").
		StringVar(&cli.PackCLI.DestPath)
	appPack.Flag("no-ignore", "Do not read .fabricignore/.gitignore").
		BoolVar(&cli.PackCLI.NoIgnore)
	appPack.Flag("hash", "Compute the content hash").
		BoolVar(&cli.PackCLI.Hash)
	appPack.Flag("hash-only", "Compute the content hash without writing an archive").
		BoolVar(&cli.PackCLI.HashOnly)
	appPack.Flag("debug", "Emit a per-file hash dump line while walking").
		BoolVar(&cli.PackCLI.Debug)
	appPack.Flag("exclude", "Glob for entries to drop entirely (repeatable)").
		StringsVar(&cli.PackCLI.Exclude)
	appPack.Flag("redact", "Glob for files to archive with empty content (repeatable)").
		StringsVar(&cli.PackCLI.Redact)
}

func configureUnpack(cli *baseCLI, appUnpack *kingpin.CmdClause) {
	appUnpack.Arg("archive", "Archive to extract").
		Required().
		StringVar(&cli.UnpackCLI.Archive)
	appUnpack.Arg("dest", "Extraction target directory").
		Required().
		StringVar(&cli.UnpackCLI.DestDir)
	appUnpack.Flag("hash", "Compute the verification hash over extracted content").
		BoolVar(&cli.UnpackCLI.Hash)
}

func configureTranslate(cli *baseCLI, appTranslate *kingpin.CmdClause) {
	appTranslate.Arg("line", "One ignore-file line").
		Required().
		StringVar(&cli.TranslateCLI.Line)
}

/*
	Blocks until a sigint is received, then calls cancel.
*/
func CancelOnInterrupt(cancel context.CancelFunc) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	<-signalChan
	cancel()
	close(signalChan)
}

func main() {
	ctx := context.Background()
	exitCode := Main(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(int(exitCode))
}

func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) fabpack.ExitCode {
	ctx, cancel := context.WithCancel(ctx)
	go CancelOnInterrupt(cancel)

	cli := baseCLI{}

	app := kingpin.New("fabpack", "Deterministic archive and hash engine")
	app.HelpFlag.Short('h')

	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	app.Flag("format", "Output format").
		Default(FmtDumb).
		EnumVar(&cli.Format, FmtJson, FmtDumb)
	app.Flag("progress", "Emit progress and log notifications to stderr").
		BoolVar(&cli.ProgressEnable)
	app.Flag("timeout", "Timeout for the whole command").
		DurationVar(&cli.Timeout)

	appPack := app.Command("pack", "archive a directory")
	configurePack(&cli, appPack)

	appUnpack := app.Command("unpack", "extract an archive")
	configureUnpack(&cli, appUnpack)

	appTranslate := app.Command("translate", "translate one ignore-file line into a glob")
	configureTranslate(&cli, appTranslate)

	var termErr error
	app.Terminate(func(status int) {
		termErr = fmt.Errorf("parsing error: %d\n", status)
	})
	cmd, err := app.Parse(args[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return fabpack.ExitUsage
	}
	if termErr != nil {
		fmt.Fprintln(stderr, termErr)
		return fabpack.ExitUsage
	}
	if cli.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cli.Timeout)
		defer cancelTimeout()
	}

	result := fabpack.Event_Result{}
	switch cmd {
	case appPack.FullCommand():
		var res fabpack.ArchiveResult
		res, err = executePack(ctx, cli, stderr)
		result.Archive = &res
	case appUnpack.FullCommand():
		var res fabpack.ExtractResult
		res, err = executeUnpack(ctx, cli, stderr)
		result.Extract = &res
	case appTranslate.FullCommand():
		result.Glob, err = ignore.TranslatePattern(cli.TranslateCLI.Line)
	}
	result.SetError(err)
	SerializeResult(cli.Format, result, stdout, stderr)
	return fabpack.ExitCodeForError(err)
}

func SerializeResult(format string, result fabpack.Event_Result, stdout, stderr io.Writer) {
	switch format {
	case FmtJson:
		marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stdout, fabpack.Atlas)
		if err := marshaller.Marshal(&result); err != nil {
			panic(err)
		}
		fmt.Fprintln(stdout)
	case FmtDumb:
		switch {
		case result.Error != nil:
			fmt.Fprintln(stderr, result.Error.Message)
		case result.Archive != nil:
			if result.Archive.Hash != "" {
				fmt.Fprintln(stdout, result.Archive.Hash)
			}
			fmt.Fprintf(stdout, "%d entries", result.Archive.EntryCount)
			if result.Archive.Path != "" {
				fmt.Fprintf(stdout, " -> %s", result.Archive.Path)
			}
			fmt.Fprintln(stdout)
		case result.Extract != nil:
			if result.Extract.Hash != "" {
				fmt.Fprintln(stdout, result.Extract.Hash)
			}
			fmt.Fprintf(stdout, "%d entries\n", result.Extract.EntryCount)
		default:
			fmt.Fprintln(stdout, result.Glob)
		}
	default:
		panic(fmt.Errorf("fabpack: invalid format %s", format))
	}
}

// monitorFor wires a monitor channel to stderr when --progress is set,
// and returns a wait func which blocks until the channel drains.
func monitorFor(cli baseCLI, stderr io.Writer) (fabpack.Monitor, func()) {
	if !cli.ProgressEnable {
		return fabpack.Monitor{}, func() {}
	}
	mon := fabpack.Monitor{Chan: make(chan fabpack.Event)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range mon.Chan {
			switch {
			case ev.Log != nil:
				fmt.Fprintf(stderr, "log: %s\n", ev.Log.Msg)
			case ev.Progress != nil:
				fmt.Fprintf(stderr, "progress: %s\n", ev.Progress.Message)
			}
		}
	}()
	return mon, func() { <-done }
}

func executePack(ctx context.Context, cli baseCLI, stderr io.Writer) (fabpack.ArchiveResult, error) {
	if cli.PackCLI.DestPath == "" && !cli.PackCLI.HashOnly {
		return fabpack.ArchiveResult{}, Errorf(fabpack.ErrUsage, "pack requires a destination path unless --hash-only is set")
	}
	opts := fabpack.Options{
		RespectIgnoreFile: !cli.PackCLI.NoIgnore,
		CalculateHash:     cli.PackCLI.Hash,
		HashOnly:          cli.PackCLI.HashOnly,
		Debug:             cli.PackCLI.Debug,
	}
	if len(cli.PackCLI.Exclude) > 0 || len(cli.PackCLI.Redact) > 0 {
		opts.Filter = globFilter{
			exclude: cli.PackCLI.Exclude,
			redact:  cli.PackCLI.Redact,
		}
	}
	mon, wait := monitorFor(cli, stderr)
	defer wait()
	return zippack.CreateArchive(ctx, cli.PackCLI.DestPath, cli.PackCLI.SourceDir, opts, mon)
}

func executeUnpack(ctx context.Context, cli baseCLI, stderr io.Writer) (fabpack.ExtractResult, error) {
	opts := fabpack.Options{
		CalculateHash: cli.UnpackCLI.Hash,
	}
	mon, wait := monitorFor(cli, stderr)
	defer wait()
	return zippack.ExtractArchive(ctx, cli.UnpackCLI.Archive, cli.UnpackCLI.DestDir, opts, mon)
}

// globFilter implements fabpack.EntryFilter over doublestar globs given
// on the command line.
type globFilter struct {
	exclude []string
	redact  []string
}

func (g globFilter) FilterFolder(root string, folder string) bool {
	return !matchAny(g.exclude, folder)
}

func (g globFilter) FilterFile(root string, relPath string) fabpack.FileDecision {
	if matchAny(g.exclude, relPath) {
		return fabpack.FileDecision{}
	}
	return fabpack.FileDecision{
		Include:          true,
		ReplaceWithEmpty: matchAny(g.redact, relPath),
	}
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
