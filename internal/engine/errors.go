package engine

import "errors"

var (
	ErrUnsupportedExerciseKind = errors.New("unsupported exercise kind")
	ErrMalformedAnswer         = errors.New("answer must be a string, a list of strings or an object of strings")
	ErrEmptyLesson             = errors.New("lesson has no exercises")
	ErrLessonNotEvaluated      = errors.New("lesson has unanswered exercises")
	ErrLessonNotFound          = errors.New("lesson not found")
	ErrProfileNotFound         = errors.New("profile not found")
	ErrExerciseNotFound        = errors.New("exercise not found")
	ErrUnknownRewardPolicy     = errors.New("unknown reward policy")
)
