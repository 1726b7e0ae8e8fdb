// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.astrophena.name/copyright/block"
)

// Status tells whether a file contains the notice.
type Status int

const (
	// Unknown means the file could not be examined.
	Unknown Status = iota
	// Absent means the file doesn't contain the notice.
	Absent
	// Present means the file contains the notice.
	Present
)

func (s Status) String() string {
	switch s {
	case Absent:
		return MsgNotFound
	case Present:
		return MsgFound
	default:
		return "unknown"
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case Absent:
		return []byte("absent"), nil
	case Present:
		return []byte("present"), nil
	default:
		return []byte("unknown"), nil
	}
}

// Reporting icons and messages.
const (
	IconOK      = "✓"
	IconMissing = "✗"
	IconError   = "!"

	MsgFound    = "notice found"
	MsgNotFound = "notice not found"
)

// Entry is the outcome of a batch operation on a single file.
type Entry struct {
	// Path is the file path as listed by the walker.
	Path string
	// Before tells whether the file had the notice before the operation.
	Before Status
	// After tells whether the file has the notice after the operation.
	After Status
	// Result is the outcome of the mutation, if one was attempted.
	Result block.Result
	// Err is the error that prevented the file from being processed.
	Err error
}

// Failed reports whether the file could not be processed.
func (e Entry) Failed() bool { return e.Err != nil }

// Line formats e as a single line of a report of op.
func (e Entry) Line(op Op) string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: error: %v", IconError, e.Path, e.Err)
	}
	icon := IconOK
	if e.After != Present && op != OpDelete {
		icon = IconMissing
	}
	switch op {
	case OpStatus:
		return fmt.Sprintf("%s %s: %s", icon, e.Path, e.After)
	case OpCreate:
		return fmt.Sprintf("%s %s: %s", icon, e.Path, e.Result)
	default:
		return fmt.Sprintf("%s %s: %s (before: %s, after: %s)", icon, e.Path, e.Result, e.Before, e.After)
	}
}

// Report collects per-file outcomes of a batch operation.
type Report struct {
	Op      Op
	Root    string
	Entries []Entry
}

// Failed returns the number of files that could not be processed.
func (r *Report) Failed() int {
	var n int
	for _, e := range r.Entries {
		if e.Failed() {
			n++
		}
	}
	return n
}

// Count returns the number of successfully processed files with status s
// after the operation.
func (r *Report) Count(s Status) int {
	var n int
	for _, e := range r.Entries {
		if !e.Failed() && e.After == s {
			n++
		}
	}
	return n
}

// Changed returns the number of files that were rewritten.
func (r *Report) Changed() int {
	var n int
	for _, e := range r.Entries {
		if e.Result.Changed() {
			n++
		}
	}
	return n
}

// Summary returns a one-line summary of the report.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d files, %d with notice, %d without", r.Op, len(r.Entries), r.Count(Present), r.Count(Absent))
	if r.Op != OpStatus {
		fmt.Fprintf(&sb, ", %d changed", r.Changed())
	}
	fmt.Fprintf(&sb, ", %d failed", r.Failed())
	return sb.String()
}

// WriteText writes one line per file followed by the summary to w.
func (r *Report) WriteText(w io.Writer) error {
	var sb strings.Builder
	for _, e := range r.Entries {
		sb.WriteString(e.Line(r.Op))
		sb.WriteByte('\n')
	}
	sb.WriteString(r.Summary())
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

type jsonEntry struct {
	Path   string `json:"path"`
	Before Status `json:"before"`
	After  Status `json:"after"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jsonReport struct {
	Op      Op          `json:"op"`
	Root    string      `json:"root"`
	Entries []jsonEntry `json:"entries"`
	Present int         `json:"present"`
	Absent  int         `json:"absent"`
	Changed int         `json:"changed"`
	Failed  int         `json:"failed"`
}

// WriteJSON writes the report as an indented JSON object to w.
func (r *Report) WriteJSON(w io.Writer) error {
	jr := jsonReport{
		Op:      r.Op,
		Root:    r.Root,
		Entries: make([]jsonEntry, 0, len(r.Entries)),
		Present: r.Count(Present),
		Absent:  r.Count(Absent),
		Changed: r.Changed(),
		Failed:  r.Failed(),
	}
	for _, e := range r.Entries {
		je := jsonEntry{Path: e.Path, Before: e.Before, After: e.After}
		if e.Result != block.None {
			je.Result = e.Result.String()
		}
		if e.Err != nil {
			je.Error = e.Err.Error()
		}
		jr.Entries = append(jr.Entries, je)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}
