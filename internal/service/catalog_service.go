package service

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const catalogSchemaURL = "schema://bravolearn/catalog.json"

const catalogSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "courses": {"type": "array", "items": {"$ref": "#/$defs/course"}},
    "achievements": {"type": "array", "items": {"$ref": "#/$defs/achievement"}}
  },
  "$defs": {
    "strings": {"type": "array", "items": {"type": "string"}},
    "course": {
      "type": "object",
      "required": ["slug", "title", "units"],
      "properties": {
        "slug": {"type": "string", "pattern": "^[a-z0-9][a-z0-9-]*$"},
        "title": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "language": {"type": "string"},
        "difficulty": {"enum": ["beginner", "intermediate", "advanced"]},
        "color": {"type": "string"},
        "published": {"type": "boolean"},
        "order": {"type": "integer"},
        "units": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/unit"}}
      }
    },
    "unit": {
      "type": "object",
      "required": ["title", "lessons"],
      "properties": {
        "title": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "lessons": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/lesson"}}
      }
    },
    "lesson": {
      "type": "object",
      "required": ["title", "exercises"],
      "properties": {
        "title": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "xp_reward": {"type": "integer", "minimum": 0},
        "exercises": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/exercise"}}
      }
    },
    "exercise": {
      "type": "object",
      "required": ["type", "question", "answer"],
      "properties": {
        "type": {"enum": ["multiple_choice", "fill_blank", "code_completion", "code_output", "drag_drop"]},
        "question": {"type": "string", "minLength": 1},
        "instructions": {"type": "string"},
        "options": {"$ref": "#/$defs/strings"},
        "answer": {
          "oneOf": [
            {"type": "string"},
            {"$ref": "#/$defs/strings"},
            {"type": "object", "additionalProperties": {"type": "string"}, "minProperties": 1}
          ]
        },
        "code": {"type": "string"},
        "explanation": {"type": "string"},
        "hints": {"$ref": "#/$defs/strings"}
      }
    },
    "achievement": {
      "type": "object",
      "required": ["code", "name", "requirement_type", "requirement_value"],
      "properties": {
        "code": {"type": "string", "pattern": "^[a-z0-9_]+$"},
        "name": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "icon": {"type": "string"},
        "requirement_type": {"enum": ["lessons_completed", "streak", "xp", "level", "perfect_lessons", "courses_enrolled"]},
        "requirement_value": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

var (
	compiledCatalogSchema *jsonschema.Schema
	catalogSchemaErr      error
	catalogSchemaOnce     sync.Once
)

func catalogSchemaValidator() (*jsonschema.Schema, error) {
	catalogSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(catalogSchema)))
		if err != nil {
			catalogSchemaErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(catalogSchemaURL, doc); err != nil {
			catalogSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledCatalogSchema, catalogSchemaErr = c.Compile(catalogSchemaURL)
	})
	return compiledCatalogSchema, catalogSchemaErr
}

// CatalogFile YAML 课程目录文件
type CatalogFile struct {
	Courses      []CatalogCourse      `yaml:"courses"`
	Achievements []CatalogAchievement `yaml:"achievements"`
}

type CatalogCourse struct {
	Slug        string        `yaml:"slug"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Language    string        `yaml:"language"`
	Difficulty  string        `yaml:"difficulty"`
	Color       string        `yaml:"color"`
	Published   *bool         `yaml:"published"`
	Order       int           `yaml:"order"`
	Units       []CatalogUnit `yaml:"units"`
}

type CatalogUnit struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Lessons     []CatalogLesson `yaml:"lessons"`
}

type CatalogLesson struct {
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	XPReward    *int              `yaml:"xp_reward"`
	Exercises   []CatalogExercise `yaml:"exercises"`
}

type CatalogExercise struct {
	Type         engine.ExerciseKind `yaml:"type"`
	Question     string              `yaml:"question"`
	Instructions string              `yaml:"instructions"`
	Options      []string            `yaml:"options"`
	Answer       any                 `yaml:"answer"`
	Code         string              `yaml:"code"`
	Explanation  string              `yaml:"explanation"`
	Hints        []string            `yaml:"hints"`
}

type CatalogAchievement struct {
	Code             string                 `yaml:"code"`
	Name             string                 `yaml:"name"`
	Description      string                 `yaml:"description"`
	Icon             string                 `yaml:"icon"`
	RequirementType  engine.RequirementKind `yaml:"requirement_type"`
	RequirementValue int                    `yaml:"requirement_value"`
}

// ParseCatalog 解析并按 schema 校验目录内容
func ParseCatalog(data []byte) (*CatalogFile, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	if raw == nil {
		return &CatalogFile{}, nil
	}

	// 经 JSON 转换后交给 jsonschema，数字统一为 json.Number
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return nil, err
	}

	schema, err := catalogSchemaValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("catalog schema validation failed: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	return &file, nil
}

func catalogAnswer(v any) (engine.Answer, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return engine.Answer{}, err
	}
	var a engine.Answer
	if err := json.Unmarshal(data, &a); err != nil {
		return engine.Answer{}, err
	}
	if a.IsZero() {
		return engine.Answer{}, engine.ErrMalformedAnswer
	}
	return a, nil
}

type SeedReport struct {
	Courses             int
	Units               int
	Lessons             int
	Exercises           int
	Achievements        int
	CreatedAchievements int
	// 目录收缩时删除的单元、课时和练习行数
	Pruned int64
}

type CatalogService struct {
	DB              *gorm.DB
	CatalogRepo     *repository.CatalogRepository
	AchievementRepo *repository.AchievementRepository
}

func NewCatalogService(db *gorm.DB, catalogRepo *repository.CatalogRepository, achievementRepo *repository.AchievementRepository) *CatalogService {
	return &CatalogService{DB: db, CatalogRepo: catalogRepo, AchievementRepo: achievementRepo}
}

func (s *CatalogService) SeedFile(ctx context.Context, path string) (*SeedReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s.Seed(ctx, file)
}

// Seed 在一个事务内写入目录；按 slug、顺序号和成就 code 匹配已有记录，可重复执行。
// 目录中已删除的单元、课时和练习会从对应课程中移除
func (s *CatalogService) Seed(ctx context.Context, file *CatalogFile) (*SeedReport, error) {
	report := &SeedReport{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		catalog := s.CatalogRepo.WithTx(tx)
		achievements := s.AchievementRepo.WithTx(tx)

		for ci, c := range file.Courses {
			course := &model.Course{
				Slug:        c.Slug,
				Title:       c.Title,
				Description: c.Description,
				Language:    c.Language,
				Difficulty:  c.Difficulty,
				Color:       c.Color,
				IsPublished: c.Published == nil || *c.Published,
				OrderIndex:  c.Order,
			}
			if course.OrderIndex == 0 {
				course.OrderIndex = ci + 1
			}
			if err := catalog.SaveCourse(ctx, course); err != nil {
				return fmt.Errorf("course %s: %w", c.Slug, err)
			}
			report.Courses++

			for ui, u := range c.Units {
				unit := &model.Unit{CourseID: course.ID, Title: u.Title, Description: u.Description, OrderIndex: ui + 1}
				if err := catalog.SaveUnit(ctx, unit); err != nil {
					return fmt.Errorf("course %s unit %d: %w", c.Slug, ui+1, err)
				}
				report.Units++

				for li, l := range u.Lessons {
					lesson := &model.Lesson{UnitID: unit.ID, Title: l.Title, Description: l.Description, OrderIndex: li + 1, XPReward: 10}
					if l.XPReward != nil {
						lesson.XPReward = *l.XPReward
					}
					if err := catalog.SaveLesson(ctx, lesson); err != nil {
						return fmt.Errorf("course %s lesson %q: %w", c.Slug, l.Title, err)
					}
					report.Lessons++

					for ei, e := range l.Exercises {
						answer, err := catalogAnswer(e.Answer)
						if err != nil {
							return fmt.Errorf("course %s lesson %q exercise %d: %w", c.Slug, l.Title, ei+1, err)
						}
						exercise := &model.Exercise{
							LessonID:      lesson.ID,
							Kind:          e.Type,
							Prompt:        e.Question,
							Instructions:  e.Instructions,
							Options:       e.Options,
							CorrectAnswer: datatypes.NewJSONType(answer),
							CodeSnippet:   e.Code,
							Explanation:   e.Explanation,
							Hints:         e.Hints,
							OrderIndex:    ei + 1,
						}
						if err := catalog.SaveExercise(ctx, exercise); err != nil {
							return fmt.Errorf("course %s lesson %q exercise %d: %w", c.Slug, l.Title, ei+1, err)
						}
						report.Exercises++
					}

					pruned, err := catalog.PruneExercises(ctx, lesson.ID, len(l.Exercises))
					if err != nil {
						return fmt.Errorf("course %s lesson %q: prune exercises: %w", c.Slug, l.Title, err)
					}
					report.Pruned += pruned
				}

				pruned, err := catalog.PruneLessons(ctx, unit.ID, len(u.Lessons))
				if err != nil {
					return fmt.Errorf("course %s unit %d: prune lessons: %w", c.Slug, ui+1, err)
				}
				report.Pruned += pruned
			}

			pruned, err := catalog.PruneUnits(ctx, course.ID, len(c.Units))
			if err != nil {
				return fmt.Errorf("course %s: prune units: %w", c.Slug, err)
			}
			report.Pruned += pruned
		}

		for _, a := range file.Achievements {
			created, err := achievements.UpsertByCode(ctx, &model.Achievement{
				Code:             a.Code,
				Name:             a.Name,
				Description:      a.Description,
				Icon:             a.Icon,
				RequirementType:  a.RequirementType,
				RequirementValue: a.RequirementValue,
			})
			if err != nil {
				return fmt.Errorf("achievement %s: %w", a.Code, err)
			}
			report.Achievements++
			if created {
				report.CreatedAchievements++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info("Catalog seeded",
		zap.Int("courses", report.Courses),
		zap.Int("lessons", report.Lessons),
		zap.Int("exercises", report.Exercises),
		zap.Int("achievements", report.Achievements),
		zap.Int64("pruned", report.Pruned),
	)
	return report, nil
}
