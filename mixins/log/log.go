/*
	Helper functions for emitting structured logs to the fabpack.Monitor.

	These functions encompass the common lifecycle events of an archive
	build or extraction, and using them A) saves typing and B) keeps the
	common stuff formatted in a common way between the two directions.
	Callers can of course also write their own log events raw; it is freetext.
*/
package log

import (
	"fmt"
	"time"

	"github.com/fabpack/fabpack"
)

// IgnoreFileDetected reports which ignore file will restrict the archive.
func IgnoreFileDetected(mon fabpack.Monitor, name string) {
	if mon.Chan == nil {
		return
	}
	mon.Send(fabpack.Event{Log: &fabpack.Event_Log{
		Time:  time.Now(),
		Level: fabpack.LogInfo,
		Msg:   fmt.Sprintf("using ignore file %q to restrict archive contents", name),
		Detail: [][2]string{
			{"ignoreFile", name},
		},
	}})
}

// NegatedPatternDropped reports an ignore line skipped because negation
// is unsupported.  Observational only; the line is dropped either way.
func NegatedPatternDropped(mon fabpack.Monitor, line string) {
	if mon.Chan == nil {
		return
	}
	mon.Send(fabpack.Event{Log: &fabpack.Event_Log{
		Time:  time.Now(),
		Level: fabpack.LogWarn,
		Msg:   fmt.Sprintf("negated ignore patterns are unsupported; dropping %q", line),
		Detail: [][2]string{
			{"pattern", line},
		},
	}})
}

// WalkStarted marks the beginning of a source tree walk.
func WalkStarted(mon fabpack.Monitor, srcDir string) {
	if mon.Chan == nil {
		return
	}
	mon.Send(fabpack.Event{Log: &fabpack.Event_Log{
		Time:  time.Now(),
		Level: fabpack.LogInfo,
		Msg:   fmt.Sprintf("walking %q", srcDir),
		Detail: [][2]string{
			{"sourceDir", srcDir},
		},
	}})
}

// WalkFinished marks the end of a source tree walk.
func WalkFinished(mon fabpack.Monitor, entryCount int) {
	if mon.Chan == nil {
		return
	}
	mon.Send(fabpack.Event{Log: &fabpack.Event_Log{
		Time:  time.Now(),
		Level: fabpack.LogInfo,
		Msg:   fmt.Sprintf("walk finished: %d entries", entryCount),
		Detail: [][2]string{
			{"entryCount", fmt.Sprintf("%d", entryCount)},
		},
	}})
}

// FileHashed is the per-file hash dump line, emitted only in debug mode.
func FileHashed(mon fabpack.Monitor, relPath string, sum string) {
	if mon.Chan == nil {
		return
	}
	mon.Send(fabpack.Event{Log: &fabpack.Event_Log{
		Time:  time.Now(),
		Level: fabpack.LogDebug,
		Msg:   fmt.Sprintf("hashed %s: %s", relPath, sum),
		Detail: [][2]string{
			{"path", relPath},
			{"hash", sum},
		},
	}})
}

// ProgressBatch is the coarse once-per-batch progress notification.
func ProgressBatch(mon fabpack.Monitor, entryCount int) {
	if mon.Chan == nil {
		return
	}
	mon.Send(fabpack.Event{Progress: &fabpack.Event_Progress{
		IncrementPercent: 1,
		Message:          fmt.Sprintf("processed %d entries", entryCount),
	}})
}
