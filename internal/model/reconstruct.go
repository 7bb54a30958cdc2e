package model

import (
	"strconv"
	"strings"

	"github.com/tracebuild/tracebuild/internal/ident"
	"github.com/tracebuild/tracebuild/internal/timestamp"
)

// BuildParams describes a `build` invocation: the whole pipeline, closed by
// the final process with the start time minted at the beginning.
type BuildParams struct {
	ID     ident.BuildID
	Start  timestamp.Timestamp
	End    timestamp.Timestamp
	Name   string // optional
	Branch string // optional
	Commit string // optional
	Status Status
}

// BuildSpan reconstructs the top-level build span. It has no parent; every
// other span of the build hangs off its trace id.
func BuildSpan(p BuildParams) Record {
	attrs := make(map[string]string, 4)
	putAttr(attrs, AttrName, p.Name)
	putAttr(attrs, AttrBuildBranch, p.Branch)
	putAttr(attrs, AttrBuildCommit, p.Commit)
	putAttr(attrs, AttrStatus, statusAttr(p.Status))

	return Record{
		TraceID:    p.ID.Trace,
		SpanID:     p.ID.Span,
		Kind:       KindBuild,
		Name:       spanName("build", p.Name),
		Start:      p.Start,
		End:        p.End,
		Status:     p.Status,
		Attributes: attrs,
	}
}

// StepParams describes a `step` invocation: a logical phase with an explicit
// id and start time supplied by the caller, closed at report time.
type StepParams struct {
	Build  ident.BuildID
	Parent *ident.StepID // enclosing step, if any; otherwise the build is the parent
	ID     ident.StepID
	Start  timestamp.Timestamp
	End    timestamp.Timestamp
	Name   string // optional
	Status Status
}

// StepSpan reconstructs a step span parented to the enclosing step or,
// absent one, to the build.
func StepSpan(p StepParams) Record {
	attrs := make(map[string]string, 2)
	putAttr(attrs, AttrName, p.Name)
	putAttr(attrs, AttrStatus, statusAttr(p.Status))

	parent := parentSpan(p.Build, p.Parent)
	return Record{
		TraceID:      p.Build.Trace,
		SpanID:       p.ID.Span,
		ParentSpanID: &parent,
		Kind:         KindStep,
		Name:         spanName("step", p.Name),
		Start:        p.Start,
		End:          p.End,
		Status:       p.Status,
		Attributes:   attrs,
	}
}

// CmdParams describes a `cmd` invocation: one wrapped command, measured by
// the wrapping process itself.
type CmdParams struct {
	Build    ident.BuildID
	Parent   *ident.StepID // enclosing step, if any
	SpanID   ident.SpanID  // freshly generated for this command
	Start    timestamp.Timestamp
	End      timestamp.Timestamp
	Command  string
	Args     []string
	ExitCode int // the child's real exit code; negative sentinel for signal termination
}

// CmdSpan reconstructs a command span. The parent is the enclosing step or,
// absent one, the build. Attributes always include the child's exit code;
// the status mirrors it (zero → success, anything else → failure).
func CmdSpan(p CmdParams) Record {
	attrs := map[string]string{
		AttrCmdCommand:  p.Command,
		AttrCmdExitCode: strconv.Itoa(p.ExitCode),
	}
	if len(p.Args) > 0 {
		attrs[AttrCmdArguments] = strings.Join(p.Args, " ")
	}

	status := StatusSuccess
	if p.ExitCode != 0 {
		status = StatusFailure
	}

	name := "cmd - " + p.Command
	if len(p.Args) > 0 {
		name += " " + strings.Join(p.Args, " ")
	}

	parent := parentSpan(p.Build, p.Parent)
	return Record{
		TraceID:      p.Build.Trace,
		SpanID:       p.SpanID,
		ParentSpanID: &parent,
		Kind:         KindCmd,
		Name:         name,
		Start:        p.Start,
		End:          p.End,
		Status:       status,
		Attributes:   attrs,
	}
}

func parentSpan(build ident.BuildID, step *ident.StepID) ident.SpanID {
	if step != nil {
		return step.Span
	}
	return build.Span
}

func spanName(kind, name string) string {
	if name == "" {
		return kind
	}
	return kind + " - " + name
}

func putAttr(attrs map[string]string, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}

func statusAttr(s Status) string {
	if s == StatusUnset || s == "" {
		return ""
	}
	return string(s)
}
