package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// QuestionBank is the catalogue file: topics and their multiple choice questions.
type QuestionBank struct {
	Topics    []models.Topic    `yaml:"topics"`
	Questions []models.Question `yaml:"questions"`
}

const questionBankSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["topics", "questions"],
  "properties": {
    "topics": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["topic_id", "topic_name"],
        "properties": {
          "topic_id": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)*$"},
          "topic_name": {"type": "string", "minLength": 1, "maxLength": 255}
        },
        "additionalProperties": false
      }
    },
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question_id", "question", "answers", "correct_answer", "topic_id"],
        "properties": {
          "question_id": {"type": "integer", "minimum": 1},
          "question": {"type": "string", "minLength": 1},
          "answers": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "uniqueItems": true,
            "items": {"type": "string", "minLength": 1}
          },
          "correct_answer": {"type": "string", "minLength": 1},
          "topic_id": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var questionBankSchemaLoader = gojsonschema.NewStringLoader(questionBankSchema)

// ParseQuestionBank validates raw YAML against the bank schema and checks the
// cross references the schema cannot express.
func ParseQuestionBank(data []byte) (*QuestionBank, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, fmt.Sprintf("question bank is not valid YAML: %v", err))
	}

	result, err := gojsonschema.Validate(questionBankSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to validate question bank")
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityError,
			"question bank does not match schema", strings.Join(problems, "; "))
	}

	var bank QuestionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode question bank")
	}
	if err := bank.check(); err != nil {
		return nil, err
	}
	return &bank, nil
}

func (b *QuestionBank) check() error {
	topics := make(map[string]bool, len(b.Topics))
	for _, t := range b.Topics {
		if topics[t.ID] {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "duplicate topic %s", t.ID)
		}
		topics[t.ID] = true
	}

	questions := make(map[int]bool, len(b.Questions))
	for i := range b.Questions {
		q := &b.Questions[i]
		if questions[q.ID] {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "duplicate question %d", q.ID)
		}
		questions[q.ID] = true
		if !topics[q.TopicID] {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "question %d refers to unknown topic %s", q.ID, q.TopicID)
		}
		if !q.HasAnswer(q.CorrectAnswer) {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed, "question %d: correct answer is not one of its answers", q.ID)
		}
	}
	return nil
}

// QuestionBankService loads the catalogue file into the store.
type QuestionBankService struct {
	store  store.CatalogStore
	logger *observability.Logger
}

// NewQuestionBankServiceWithLogger creates a QuestionBankService
func NewQuestionBankServiceWithLogger(s store.CatalogStore, logger *observability.Logger) *QuestionBankService {
	return &QuestionBankService{store: s, logger: logger}
}

// LoadFile reads and validates a question bank file.
func (s *QuestionBankService) LoadFile(path string) (*QuestionBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read question bank %s", path)
	}
	return ParseQuestionBank(data)
}

// Seed upserts every topic and question in bank and gives existing accounts
// zero performance rows for any entry they lack. It returns how many
// performance rows were added.
func (s *QuestionBankService) Seed(ctx context.Context, bank *QuestionBank) (result0 int64, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "SeedQuestionBank",
		attribute.Int("bank.topics", len(bank.Topics)),
		attribute.Int("bank.questions", len(bank.Questions)),
	)
	defer observability.FinishSpan(span, &err)

	added, err := s.store.SeedCatalog(ctx, bank.Topics, bank.Questions)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to seed question bank")
	}

	s.logger.Info(ctx, "Question bank seeded", map[string]interface{}{
		"topics":             len(bank.Topics),
		"questions":          len(bank.Questions),
		"performance_filled": added,
	})
	return added, nil
}

// SeedIfEmpty seeds from path only when the catalogue has no questions yet.
// It reports whether anything was written.
func (s *QuestionBankService) SeedIfEmpty(ctx context.Context, path string) (bool, error) {
	n, err := s.store.CountQuestions(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.logger.Debug(ctx, "Question bank already present, skipping seed", map[string]interface{}{"questions": n})
		return false, nil
	}

	bank, err := s.LoadFile(path)
	if err != nil {
		return false, err
	}
	if _, err := s.Seed(ctx, bank); err != nil {
		return false, err
	}
	return true, nil
}
