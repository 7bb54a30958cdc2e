package model

import (
	"github.com/tracebuild/tracebuild/internal/timestamp"
)

// Duration metric names, one per span kind.
const (
	MetricCmdDuration   = "tracebuild.cmd.duration"
	MetricStepDuration  = "tracebuild.step.duration"
	MetricBuildDuration = "tracebuild.build.duration"
)

// Metric label keys. The set is deliberately small and fixed: every extra
// label multiplies series cardinality in the push gateway.
const (
	LabelName     = "tracebuild.name"
	LabelExitCode = "tracebuild.exit_code"
	LabelStatus   = "tracebuild.status"
	LabelBranch   = "tracebuild.branch"
)

// MetricSample is a single duration observation destined for a histogram.
type MetricSample struct {
	Name   string
	Value  float64 // seconds
	Labels map[string]string
	Time   timestamp.Timestamp
}

// DurationSample derives the duration observation for a record. Labels are
// restricted per kind — cmd: {name, exit_code}, step: {name, status},
// build: {name, branch, status} — with absent values mapped to the "unset"
// sentinel so each metric keeps a constant label set.
func (r Record) DurationSample() MetricSample {
	d, _ := r.Duration()
	s := MetricSample{
		Value: d.Seconds(),
		Time:  r.End,
	}
	switch r.Kind {
	case KindCmd:
		s.Name = MetricCmdDuration
		s.Labels = map[string]string{
			LabelName:     orUnset(r.Attributes[AttrCmdCommand]),
			LabelExitCode: orUnset(r.Attributes[AttrCmdExitCode]),
		}
	case KindStep:
		s.Name = MetricStepDuration
		s.Labels = map[string]string{
			LabelName:   orUnset(r.Attributes[AttrName]),
			LabelStatus: statusLabel(r.Status),
		}
	case KindBuild:
		s.Name = MetricBuildDuration
		s.Labels = map[string]string{
			LabelName:   orUnset(r.Attributes[AttrName]),
			LabelBranch: orUnset(r.Attributes[AttrBuildBranch]),
			LabelStatus: statusLabel(r.Status),
		}
	}
	return s
}

func orUnset(v string) string {
	if v == "" {
		return Unset
	}
	return v
}

func statusLabel(s Status) string {
	if s == StatusUnset || s == "" {
		return Unset
	}
	return string(s)
}
