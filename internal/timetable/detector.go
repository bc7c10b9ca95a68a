package timetable

import (
	"fmt"
	"sort"
)

// ConflictKind classifies the contested resource.
type ConflictKind string

const (
	KindRoom    ConflictKind = "room"
	KindTeacher ConflictKind = "teacher"
	KindSection ConflictKind = "section"
	// KindStudent is reserved for individual-level overlaps. No rule computes
	// it yet; it exists so reports and clients agree on the vocabulary.
	KindStudent ConflictKind = "student"
)

// Severity grades a conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ReportStatus tracks the resolution state machine: open is initial,
// resolved and overridden are terminal.
type ReportStatus string

const (
	StatusOpen       ReportStatus = "open"
	StatusResolved   ReportStatus = "resolved"
	StatusOverridden ReportStatus = "overridden"
)

// ConflictReport describes one detected violation: two or more assignments
// sharing time and a constrained resource.
type ConflictReport struct {
	ID          string       `json:"id"`
	Kind        ConflictKind `json:"kind"`
	Severity    Severity     `json:"severity"`
	Status      ReportStatus `json:"status"`
	ResourceID  string       `json:"resource_id"`
	Description string       `json:"description"`
	Assignments []Assignment `json:"assignments"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

var kindPriority = map[ConflictKind]int{
	KindRoom:    0,
	KindTeacher: 1,
	KindSection: 2,
	KindStudent: 3,
}

func severityFor(kind ConflictKind) Severity {
	switch kind {
	case KindRoom, KindTeacher:
		return SeverityHigh
	case KindSection:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DetectorOptions tune suggestion generation. Zero values give sane defaults.
type DetectorOptions struct {
	// AlternateRooms lists room ids considered when proposing a room move.
	AlternateRooms []string
	// AlternateTeachers lists teacher ids considered when proposing a reassignment.
	AlternateTeachers []string
	// SlotStepMin is the granularity used when searching for a free start time.
	SlotStepMin int
	// DayEndMin is the latest minute-of-day a shifted class may end at.
	DayEndMin int
}

// Detector finds scheduling conflicts over assignment snapshots. Detection is
// idempotent and never mutates its inputs.
type Detector struct {
	opts DetectorOptions
}

// NewDetector builds a detector.
func NewDetector(opts DetectorOptions) *Detector {
	if opts.SlotStepMin <= 0 {
		opts.SlotStepMin = 30
	}
	if opts.DayEndMin <= 0 {
		opts.DayEndMin = 20 * 60
	}
	return &Detector{opts: opts}
}

// Detect evaluates a candidate assignment against the current set and returns
// the conflict reports the candidate participates in, in stable order. An
// existing assignment with the candidate's key is ignored so in-place updates
// do not conflict with themselves. An empty result means the candidate is free.
func (d *Detector) Detect(candidate Assignment, current []Assignment) []ConflictReport {
	merged := make([]Assignment, 0, len(current)+1)
	for _, a := range current {
		if a.Key() == candidate.Key() {
			continue
		}
		merged = append(merged, a)
	}
	merged = append(merged, candidate)

	var reports []ConflictReport
	for _, report := range d.DetectAll(merged) {
		for _, a := range report.Assignments {
			if a.Key() == candidate.Key() {
				reports = append(reports, report)
				break
			}
		}
	}
	return reports
}

// DetectAll sweeps a full assignment snapshot and returns every conflict
// report, ordered by day, start time, then kind priority (room before teacher
// before section). Pairs violating several rules at once yield only the
// highest-priority kind.
func (d *Detector) DetectAll(set []Assignment) []ConflictReport {
	type edge struct {
		kind ConflictKind
		a, b int
	}
	var edges []edge
	for i := 0; i < len(set); i++ {
		for j := i + 1; j < len(set); j++ {
			if !set[i].Interval.Overlaps(set[j].Interval) {
				continue
			}
			switch {
			case set[i].RoomID == set[j].RoomID:
				edges = append(edges, edge{KindRoom, i, j})
			case set[i].TeacherID == set[j].TeacherID:
				edges = append(edges, edge{KindTeacher, i, j})
			case set[i].SectionID == set[j].SectionID:
				edges = append(edges, edge{KindSection, i, j})
			}
		}
	}

	// Connected components per kind: three or more assignments overlapping at
	// the same slot collapse into a single report carrying the whole cluster.
	var reports []ConflictReport
	for _, kind := range []ConflictKind{KindRoom, KindTeacher, KindSection} {
		parent := make([]int, len(set))
		for i := range parent {
			parent[i] = i
		}
		var find func(int) int
		find = func(x int) int {
			if parent[x] != x {
				parent[x] = find(parent[x])
			}
			return parent[x]
		}
		linked := make(map[int]bool)
		for _, e := range edges {
			if e.kind != kind {
				continue
			}
			linked[e.a] = true
			linked[e.b] = true
			parent[find(e.a)] = find(e.b)
		}
		clusters := make(map[int][]int)
		for idx := range linked {
			root := find(idx)
			clusters[root] = append(clusters[root], idx)
		}
		for _, members := range clusters {
			group := make([]Assignment, 0, len(members))
			for _, idx := range members {
				group = append(group, set[idx])
			}
			reports = append(reports, d.buildReport(kind, group, set))
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		ad, bd := a.Assignments[0].Interval.Day, b.Assignments[0].Interval.Day
		if ad != bd {
			return ad < bd
		}
		as, bs := a.Assignments[0].Interval.Start, b.Assignments[0].Interval.Start
		if as != bs {
			return as < bs
		}
		return kindPriority[a.Kind] < kindPriority[b.Kind]
	})
	return reports
}

func (d *Detector) buildReport(kind ConflictKind, group []Assignment, set []Assignment) ConflictReport {
	sort.Slice(group, func(i, j int) bool {
		gi, gj := group[i], group[j]
		if gi.Interval.Day != gj.Interval.Day {
			return gi.Interval.Day < gj.Interval.Day
		}
		if gi.Interval.Start != gj.Interval.Start {
			return gi.Interval.Start < gj.Interval.Start
		}
		return gi.SectionID < gj.SectionID
	})

	resource := ""
	switch kind {
	case KindRoom:
		resource = group[0].RoomID
	case KindTeacher:
		resource = group[0].TeacherID
	case KindSection:
		resource = group[0].SectionID
	}

	first := group[0].Interval
	span := Interval{Day: first.Day, Start: first.Start, End: first.End}
	for _, a := range group[1:] {
		if a.Interval.Start < span.Start {
			span.Start = a.Interval.Start
		}
		if a.Interval.End > span.End {
			span.End = a.Interval.End
		}
	}

	report := ConflictReport{
		ID:          fmt.Sprintf("%s:%s:%s:%d", kind, resource, span.Day, span.Start),
		Kind:        kind,
		Severity:    severityFor(kind),
		Status:      StatusOpen,
		ResourceID:  resource,
		Description: describe(kind, resource, group, span),
		Assignments: group,
	}
	report.Suggestions = d.suggest(report, set)
	return report
}

func describe(kind ConflictKind, resource string, group []Assignment, span Interval) string {
	switch kind {
	case KindRoom:
		return fmt.Sprintf("room %s is double-booked on %s", resource, span)
	case KindTeacher:
		return fmt.Sprintf("teacher %s is assigned %d classes at once on %s", resource, len(group), span)
	case KindSection:
		return fmt.Sprintf("section %s has overlapping classes on %s", resource, span)
	default:
		return fmt.Sprintf("conflict on %s", span)
	}
}
