package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebuild/tracebuild/internal/ident"
	"github.com/tracebuild/tracebuild/internal/model"
	"github.com/tracebuild/tracebuild/internal/timestamp"
)

func mustBuildID(t *testing.T) ident.BuildID {
	t.Helper()
	id, err := ident.NewBuildID()
	require.NoError(t, err)
	return id
}

func ts(t *testing.T, s string) timestamp.Timestamp {
	t.Helper()
	v, err := timestamp.Parse(s)
	require.NoError(t, err)
	return v
}

// ---- tree reconstruction --------------------------------------------------

func TestReconstruct_BuildStepCmdChain(t *testing.T) {
	// Three separate invocations share only plain-text ids, as a build
	// script would thread them. The reconstructed parents must form the
	// exact build -> step -> cmd chain.
	build := mustBuildID(t)
	stepRaw := mustBuildID(t)
	step, err := ident.ParseStepID(stepRaw.String())
	require.NoError(t, err)
	cmdSpan := mustBuildID(t).Span

	cmdRec := model.CmdSpan(model.CmdParams{
		Build:    build,
		Parent:   &step,
		SpanID:   cmdSpan,
		Start:    ts(t, "1700000000"),
		End:      ts(t, "1700000010"),
		Command:  "make",
		Args:     []string{"test"},
		ExitCode: 0,
	})
	stepRec := model.StepSpan(model.StepParams{
		Build:  build,
		ID:     step,
		Start:  ts(t, "1700000000"),
		End:    ts(t, "1700000060"),
		Name:   "compile",
		Status: model.StatusSuccess,
	})
	buildRec := model.BuildSpan(model.BuildParams{
		ID:     build,
		Start:  ts(t, "1700000000"),
		End:    ts(t, "1700000120"),
		Name:   "ci",
		Status: model.StatusSuccess,
	})

	// One trace id across all three spans.
	assert.Equal(t, build.Trace, cmdRec.TraceID)
	assert.Equal(t, build.Trace, stepRec.TraceID)
	assert.Equal(t, build.Trace, buildRec.TraceID)

	// cmd -> step -> build parent chain.
	require.NotNil(t, cmdRec.ParentSpanID)
	assert.Equal(t, step.Span, *cmdRec.ParentSpanID)
	require.NotNil(t, stepRec.ParentSpanID)
	assert.Equal(t, build.Span, *stepRec.ParentSpanID)
	assert.Nil(t, buildRec.ParentSpanID)
}

func TestCmdSpan_FallsBackToBuildParent(t *testing.T) {
	build := mustBuildID(t)
	rec := model.CmdSpan(model.CmdParams{
		Build:    build,
		SpanID:   mustBuildID(t).Span,
		Start:    ts(t, "1700000000"),
		End:      ts(t, "1700000001"),
		Command:  "true",
		ExitCode: 0,
	})
	require.NotNil(t, rec.ParentSpanID)
	assert.Equal(t, build.Span, *rec.ParentSpanID)
}

// ---- cmd ------------------------------------------------------------------

func TestCmdSpan_AttributesAndStatus(t *testing.T) {
	rec := model.CmdSpan(model.CmdParams{
		Build:    mustBuildID(t),
		SpanID:   mustBuildID(t).Span,
		Start:    ts(t, "1700000000"),
		End:      ts(t, "1700000005"),
		Command:  "go",
		Args:     []string{"test", "./..."},
		ExitCode: 2,
	})
	assert.Equal(t, model.KindCmd, rec.Kind)
	assert.Equal(t, "cmd - go test ./...", rec.Name)
	assert.Equal(t, "go", rec.Attributes[model.AttrCmdCommand])
	assert.Equal(t, "test ./...", rec.Attributes[model.AttrCmdArguments])
	assert.Equal(t, "2", rec.Attributes[model.AttrCmdExitCode])
	assert.Equal(t, model.StatusFailure, rec.Status)
}

func TestCmdSpan_SignalExitCodeSentinel(t *testing.T) {
	rec := model.CmdSpan(model.CmdParams{
		Build:    mustBuildID(t),
		SpanID:   mustBuildID(t).Span,
		Start:    ts(t, "1700000000"),
		End:      ts(t, "1700000005"),
		Command:  "sleep",
		Args:     []string{"600"},
		ExitCode: -15, // terminated by SIGTERM
	})
	assert.Equal(t, "-15", rec.Attributes[model.AttrCmdExitCode])
	assert.Equal(t, model.StatusFailure, rec.Status)
}

// ---- step / build defaults ------------------------------------------------

func TestStepSpan_UnnamedDefaults(t *testing.T) {
	rec := model.StepSpan(model.StepParams{
		Build: mustBuildID(t),
		ID:    ident.StepID{Span: mustBuildID(t).Span},
		Start: ts(t, "1700000000"),
		End:   ts(t, "1700000001"),
	})
	assert.Equal(t, "step", rec.Name)
	assert.NotContains(t, rec.Attributes, model.AttrName)
	assert.NotContains(t, rec.Attributes, model.AttrStatus)
}

func TestBuildSpan_Metadata(t *testing.T) {
	rec := model.BuildSpan(model.BuildParams{
		ID:     mustBuildID(t),
		Start:  ts(t, "1700000000"),
		End:    ts(t, "1700000600"),
		Name:   "nightly",
		Branch: "main",
		Commit: "abc123",
		Status: model.StatusFailure,
	})
	assert.Equal(t, "build - nightly", rec.Name)
	assert.Equal(t, "main", rec.Attributes[model.AttrBuildBranch])
	assert.Equal(t, "abc123", rec.Attributes[model.AttrBuildCommit])
	assert.Equal(t, "failure", rec.Attributes[model.AttrStatus])
}

// ---- duration -------------------------------------------------------------

func TestDuration_Normal(t *testing.T) {
	rec := model.Record{Start: ts(t, "1700000000"), End: ts(t, "1700000042")}
	d, skew := rec.Duration()
	assert.Equal(t, 42*time.Second, d)
	assert.False(t, skew)
}

func TestDuration_ClampsClockSkew(t *testing.T) {
	rec := model.Record{Start: ts(t, "1700000042"), End: ts(t, "1700000000")}
	d, skew := rec.Duration()
	assert.Equal(t, time.Duration(0), d, "skewed duration clamps to exactly zero")
	assert.True(t, skew)
}

func TestDuration_ZeroIsNotSkew(t *testing.T) {
	rec := model.Record{Start: ts(t, "1700000000"), End: ts(t, "1700000000")}
	d, skew := rec.Duration()
	assert.Equal(t, time.Duration(0), d)
	assert.False(t, skew)
}

// ---- metric derivation ----------------------------------------------------

func TestDurationSample_Cmd(t *testing.T) {
	rec := model.CmdSpan(model.CmdParams{
		Build:    mustBuildID(t),
		SpanID:   mustBuildID(t).Span,
		Start:    ts(t, "1700000000"),
		End:      ts(t, "1700000030"),
		Command:  "make",
		ExitCode: 1,
	})
	s := rec.DurationSample()
	assert.Equal(t, model.MetricCmdDuration, s.Name)
	assert.Equal(t, 30.0, s.Value)
	assert.Equal(t, map[string]string{
		model.LabelName:     "make",
		model.LabelExitCode: "1",
	}, s.Labels)
	assert.Equal(t, rec.End, s.Time)
}

func TestDurationSample_BuildUnsetSentinels(t *testing.T) {
	rec := model.BuildSpan(model.BuildParams{
		ID:     mustBuildID(t),
		Start:  ts(t, "1700000000"),
		End:    ts(t, "1700000060"),
		Status: model.StatusUnset,
	})
	s := rec.DurationSample()
	assert.Equal(t, model.MetricBuildDuration, s.Name)
	assert.Equal(t, map[string]string{
		model.LabelName:   "unset",
		model.LabelBranch: "unset",
		model.LabelStatus: "unset",
	}, s.Labels)
}

func TestParseStatus(t *testing.T) {
	s, err := model.ParseStatus("success")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, s)

	s, err = model.ParseStatus("failure")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailure, s)

	_, err = model.ParseStatus("ok")
	assert.Error(t, err)
}
