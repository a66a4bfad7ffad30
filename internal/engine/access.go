package engine

type LessonStatus string

const (
	StatusLocked     LessonStatus = "locked"
	StatusUnlocked   LessonStatus = "unlocked"
	StatusInProgress LessonStatus = "in_progress"
	StatusCompleted  LessonStatus = "completed"
)

func (s LessonStatus) Valid() bool {
	switch s {
	case StatusLocked, StatusUnlocked, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s LessonStatus) Accessible() bool {
	return s == StatusUnlocked || s == StatusInProgress || s == StatusCompleted
}

type LessonAccess struct {
	LessonID uint         `json:"lessonId"`
	Status   LessonStatus `json:"status"`
}

// ResolveAccess derives the status of each lesson of one unit, given in
// unit order. A recorded unlocked, in_progress or completed status is kept
// as-is; a recorded locked status falls back to the positional rule.
func ResolveAccess(lessonIDs []uint, enrolled bool, recorded map[uint]LessonStatus) []LessonAccess {
	out := make([]LessonAccess, len(lessonIDs))
	for i, id := range lessonIDs {
		out[i] = LessonAccess{LessonID: id, Status: resolveOne(lessonIDs, i, enrolled, recorded)}
	}
	return out
}

func resolveOne(lessonIDs []uint, i int, enrolled bool, recorded map[uint]LessonStatus) LessonStatus {
	if !enrolled {
		return StatusLocked
	}
	if status, ok := recorded[lessonIDs[i]]; ok && status.Accessible() {
		return status
	}
	if i == 0 {
		return StatusUnlocked
	}
	if recorded[lessonIDs[i-1]] == StatusCompleted {
		return StatusUnlocked
	}
	return StatusLocked
}

// AccessOf returns the resolved status of a single lesson.
func AccessOf(access []LessonAccess, lessonID uint) (LessonStatus, bool) {
	for _, a := range access {
		if a.LessonID == lessonID {
			return a.Status, true
		}
	}
	return "", false
}
