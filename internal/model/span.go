// Package model holds the span and metric data model and the pure
// reconstruction functions that turn caller-supplied identifiers and
// timestamps into well-formed records.
//
// Nothing here touches the network or the clock: a record is created by one
// tool invocation from plain-text inputs threaded through the calling build
// script, and the exporter layer translates it into whichever backend is
// configured.
package model

import (
	"fmt"
	"time"

	"github.com/tracebuild/tracebuild/internal/ident"
	"github.com/tracebuild/tracebuild/internal/timestamp"
)

// Kind is the granularity of an instrumented operation.
type Kind string

const (
	KindCmd   Kind = "cmd"   // a single wrapped shell command
	KindStep  Kind = "step"  // a logical grouping of commands
	KindBuild Kind = "build" // the whole pipeline invocation
)

// Status is the reported outcome of an operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusUnset   Status = "unset"
)

// Unset is the sentinel used for optional metadata (name, branch, status)
// that the calling context could not supply, e.g. local runs without VCS.
const Unset = "unset"

// ParseStatus decodes a caller-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "success":
		return StatusSuccess, nil
	case "failure":
		return StatusFailure, nil
	default:
		return StatusUnset, fmt.Errorf("model: invalid status %q; valid are: success, failure", s)
	}
}

// Span attribute keys, following the tracebuild wire conventions.
const (
	AttrCmdCommand   = "tracebuild.cmd.command"
	AttrCmdArguments = "tracebuild.cmd.arguments"
	AttrCmdExitCode  = "tracebuild.cmd.exit_code"
	AttrName         = "tracebuild.name"
	AttrStatus       = "tracebuild.status"
	AttrBuildBranch  = "tracebuild.build.branch"
	AttrBuildCommit  = "tracebuild.build.commit"
)

// Record is a reconstructed span: a named, timed operation with identity and
// an optional parent, assembled after the fact from data the caller carried
// across process boundaries. Immutable once built.
type Record struct {
	TraceID      ident.TraceID
	SpanID       ident.SpanID
	ParentSpanID *ident.SpanID
	Kind         Kind
	Name         string
	Start        timestamp.Timestamp
	End          timestamp.Timestamp
	Status       Status
	Attributes   map[string]string
}

// Duration returns End−Start clamped to zero. The second return reports
// clock skew (end before start, from a racing or stale caller); the caller
// emits a diagnostic for it, the duration itself is never negative.
func (r Record) Duration() (time.Duration, bool) {
	d := r.End.Time().Sub(r.Start.Time())
	if d < 0 {
		return 0, true
	}
	return d, false
}
