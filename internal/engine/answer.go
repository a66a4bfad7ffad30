package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswerShape 答案的结构类型
type AnswerShape string

const (
	ShapeSingle  AnswerShape = "single"
	ShapeOrdered AnswerShape = "ordered"
	ShapeKeyed   AnswerShape = "keyed"
)

// Answer is either an expected answer or a learner submission.
// Exactly one of Single, Ordered or Keyed is meaningful, selected by Shape.
type Answer struct {
	Shape   AnswerShape
	Single  string
	Ordered []string
	Keyed   map[string]string
}

func SingleAnswer(s string) Answer {
	return Answer{Shape: ShapeSingle, Single: s}
}

func OrderedAnswer(items ...string) Answer {
	if items == nil {
		items = []string{}
	}
	return Answer{Shape: ShapeOrdered, Ordered: items}
}

func KeyedAnswer(blanks map[string]string) Answer {
	if blanks == nil {
		blanks = map[string]string{}
	}
	return Answer{Shape: ShapeKeyed, Keyed: blanks}
}

func (a Answer) IsZero() bool {
	return a.Shape == ""
}

// MarshalJSON writes the bare value: a string, an array or an object.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Shape {
	case ShapeSingle:
		return json.Marshal(a.Single)
	case ShapeOrdered:
		if a.Ordered == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Ordered)
	case ShapeKeyed:
		if a.Keyed == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(a.Keyed)
	case "":
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("%w: shape %q", ErrUnsupportedExerciseKind, a.Shape)
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Answer{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
		}
		*a = SingleAnswer(s)
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
		}
		*a = OrderedAnswer(items...)
	case '{':
		var blanks map[string]string
		if err := json.Unmarshal(trimmed, &blanks); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
		}
		*a = KeyedAnswer(blanks)
	default:
		return ErrMalformedAnswer
	}
	return nil
}
