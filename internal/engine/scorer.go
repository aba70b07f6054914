package engine

import "math"

const (
	coverageWeight  = 70.0
	balanceWeight   = 30.0
	priorityWeight  = 10.0
	conflictPenalty = 2.0
)

// ScoreBreakdown exposes the terms that make up an attempt score.
type ScoreBreakdown struct {
	Coverage        float64 `json:"coverage"`
	ConflictPenalty float64 `json:"conflictPenalty"`
	BalanceBonus    float64 `json:"balanceBonus"`
	PriorityBonus   float64 `json:"priorityBonus"`
	Total           int     `json:"total"`
}

// Score rates an attempt between 0 and 100.
func Score(in Input, attempt Attempt) int {
	return Breakdown(in, attempt).Total
}

// Breakdown computes every score term for an attempt against the run's teachers.
func Breakdown(in Input, attempt Attempt) ScoreBreakdown {
	var out ScoreBreakdown
	if len(attempt.Lessons) == 0 {
		return out
	}

	totalRequired := 0
	priorityRequired := 0
	ratios := make([]float64, 0, len(in.Teachers))
	for _, t := range in.Teachers {
		required := t.required()
		totalRequired += required
		if t.Priority {
			priorityRequired += required
		}
		if required > 0 {
			ratios = append(ratios, float64(attempt.Assigned[t.ID])/float64(required))
		}
	}
	if totalRequired == 0 {
		return out
	}

	out.Coverage = coverageWeight * float64(len(attempt.Lessons)) / float64(totalRequired)
	if in.PenalizeConflicts {
		out.ConflictPenalty = conflictPenalty * float64(attempt.Conflicts)
	}
	if in.BalanceLoad {
		out.BalanceBonus = balanceWeight * (1 - math.Min(1, Variance(ratios)))
	}
	if in.PrioritizeRequiredCourses && priorityRequired > 0 {
		priorityScheduled := 0
		for _, l := range attempt.Lessons {
			if l.IsPriority {
				priorityScheduled++
			}
		}
		out.PriorityBonus = priorityWeight * float64(priorityScheduled) / float64(priorityRequired)
	}

	raw := math.Round(out.Coverage - out.ConflictPenalty + out.BalanceBonus + out.PriorityBonus)
	out.Total = int(math.Max(0, math.Min(100, raw)))
	return out
}

// Variance is the population variance of values.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var acc float64
	for _, v := range values {
		acc += (v - mean) * (v - mean)
	}
	return acc / float64(len(values))
}

// Unscheduled counts the lessons still owed, clamped at zero per teacher.
func Unscheduled(teachers []TeacherDemand, lessons []Lesson) int {
	placed := make(map[string]int, len(teachers))
	for _, l := range lessons {
		placed[l.TeacherID]++
	}
	total := 0
	for _, t := range teachers {
		if missing := t.required() - placed[t.ID]; missing > 0 {
			total += missing
		}
	}
	return total
}
