package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type ExerciseKind string

const (
	KindMultipleChoice ExerciseKind = "multiple_choice"
	KindFillBlank      ExerciseKind = "fill_blank"
	KindCodeCompletion ExerciseKind = "code_completion"
	KindCodeOutput     ExerciseKind = "code_output"
	KindDragDrop       ExerciseKind = "drag_drop"
)

func (k ExerciseKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindFillBlank, KindCodeCompletion, KindCodeOutput, KindDragDrop:
		return true
	}
	return false
}

// Exercise is the part of an exercise the evaluator needs.
type Exercise struct {
	ID       uint
	Kind     ExerciseKind
	Expected Answer
}

// Verdict 单次作答的判定结果
type Verdict struct {
	ExerciseID uint
	Correct    bool
	At         time.Time
}

// Evaluate checks a submission against the exercise's expected answer.
// The comparison is chosen by the expected answer's shape; the kind only has
// to be one of the known labels. A submission of a different shape is wrong.
func Evaluate(ex Exercise, submitted Answer) (bool, error) {
	if !ex.Kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedExerciseKind, ex.Kind)
	}

	switch ex.Expected.Shape {
	case ShapeSingle:
		if submitted.Shape != ShapeSingle {
			return false, nil
		}
		return strings.TrimSpace(submitted.Single) == strings.TrimSpace(ex.Expected.Single), nil
	case ShapeOrdered:
		if submitted.Shape != ShapeOrdered {
			return false, nil
		}
		return slices.Equal(submitted.Ordered, ex.Expected.Ordered), nil
	case ShapeKeyed:
		if submitted.Shape != ShapeKeyed {
			return false, nil
		}
		for key, want := range ex.Expected.Keyed {
			got, ok := submitted.Keyed[key]
			if !ok || normalizeBlank(got) != normalizeBlank(want) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: answer shape %q", ErrUnsupportedExerciseKind, ex.Expected.Shape)
	}
}

func normalizeBlank(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LatestVerdicts keeps the most recent verdict per exercise. On equal
// timestamps the one appearing later in the slice wins.
func LatestVerdicts(verdicts []Verdict) map[uint]Verdict {
	latest := make(map[uint]Verdict, len(verdicts))
	for _, v := range verdicts {
		prev, ok := latest[v.ExerciseID]
		if !ok || !v.At.Before(prev.At) {
			latest[v.ExerciseID] = v
		}
	}
	return latest
}
