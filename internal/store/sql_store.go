package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// dialect captures what differs between the SQL engines.
type dialect struct {
	name string
	// lockClause is appended to the SELECT that opens a read-modify-write.
	lockClause string
	// dollarParams rewrites ? placeholders to $1, $2, ...
	dollarParams bool
	isUnique     func(error) bool
	isTransient  func(error) bool
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqlStore struct {
	db      *sql.DB
	dialect dialect
	logger  *observability.Logger
}

const counterColumns = "times_answered, times_correct, times_wrong, times_unknown, accuracy, proficiency_level"

// q rewrites a query written with ? placeholders for the active dialect.
func (s *sqlStore) q(query string) string {
	if !s.dialect.dollarParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) queryError(err error, format string, args ...interface{}) error {
	code := contextutils.ErrorCodeDatabaseQuery
	if s.dialect.isTransient != nil && s.dialect.isTransient(err) {
		code = contextutils.ErrorCodeDatabaseTransaction
	}
	return contextutils.NewAppErrorWithCause(code, contextutils.SeverityError, fmt.Sprintf(format, args...), err.Error(), err)
}

func (s *sqlStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseTransaction, contextutils.SeverityError,
			"failed to begin transaction", err.Error(), err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error(ctx, "Failed to roll back transaction", rbErr, map[string]interface{}{"dialect": s.dialect.name})
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseTransaction, contextutils.SeverityError,
			"failed to commit transaction", err.Error(), err)
	}
	return nil
}

// performanceTarget resolves the table, key column and key value for a row.
func performanceTarget(key models.PerformanceKey) (table, column string, id interface{}, err error) {
	switch key.Kind {
	case models.QuestionPerformanceKind:
		return "question_performance", "question_id", key.QuestionID, nil
	case models.TopicPerformanceKind:
		return "topic_performance", "topic_id", key.TopicID, nil
	default:
		return "", "", nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown performance kind %q", key.Kind)
	}
}

func describeKey(key models.PerformanceKey) string {
	if key.Kind == models.QuestionPerformanceKind {
		return fmt.Sprintf("question %d for %s", key.QuestionID, key.UserEmail)
	}
	return fmt.Sprintf("topic %s for %s", key.TopicID, key.UserEmail)
}

func (s *sqlStore) readCounters(ctx context.Context, db queryer, key models.PerformanceKey, lock bool) (models.Counters, error) {
	table, column, id, err := performanceTarget(key)
	if err != nil {
		return models.Counters{}, err
	}
	query := "SELECT " + counterColumns + " FROM " + table + " WHERE user_email = ? AND " + column + " = ?"
	if lock {
		query += s.dialect.lockClause
	}

	var c models.Counters
	err = db.QueryRowContext(ctx, s.q(query), key.UserEmail, id).Scan(
		&c.TimesAnswered, &c.TimesCorrect, &c.TimesWrong, &c.TimesUnknown, &c.Accuracy, &c.ProficiencyLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Counters{}, contextutils.WrapErrorf(contextutils.ErrPerformanceNotFound, "no performance row for %s", describeKey(key))
	}
	if err != nil {
		return models.Counters{}, s.queryError(err, "failed to read performance for %s", describeKey(key))
	}
	return c, nil
}

func (s *sqlStore) writeCounters(ctx context.Context, db queryer, key models.PerformanceKey, c models.Counters) error {
	table, column, id, err := performanceTarget(key)
	if err != nil {
		return err
	}
	query := "UPDATE " + table + " SET times_answered = ?, times_correct = ?, times_wrong = ?, times_unknown = ?, accuracy = ?, proficiency_level = ?" +
		" WHERE user_email = ? AND " + column + " = ?"

	res, err := db.ExecContext(ctx, s.q(query),
		c.TimesAnswered, c.TimesCorrect, c.TimesWrong, c.TimesUnknown, c.Accuracy, c.ProficiencyLevel, key.UserEmail, id)
	if err != nil {
		return s.queryError(err, "failed to write performance for %s", describeKey(key))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return s.queryError(err, "failed to confirm performance write for %s", describeKey(key))
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrPerformanceNotFound, "no performance row for %s", describeKey(key))
	}
	return nil
}

// ReadPerformance returns the counters of one row.
func (s *sqlStore) ReadPerformance(ctx context.Context, key models.PerformanceKey) (models.Counters, error) {
	return s.readCounters(ctx, s.db, key, false)
}

// WritePerformance overwrites the counters of an existing row.
func (s *sqlStore) WritePerformance(ctx context.Context, key models.PerformanceKey, counters models.Counters) error {
	return s.writeCounters(ctx, s.db, key, counters)
}

// UpdatePerformance performs one locked read and one write of a row.
func (s *sqlStore) UpdatePerformance(ctx context.Context, key models.PerformanceKey, fn UpdateFunc) (result0 models.Counters, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "UpdatePerformance",
		observability.AttributeUserEmail(key.UserEmail),
		attribute.String("performance.kind", string(key.Kind)),
		attribute.String("db.dialect", s.dialect.name),
	)
	defer observability.FinishSpan(span, &err)

	var updated models.Counters
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.readCounters(ctx, tx, key, true)
		if err != nil {
			return err
		}
		updated = fn(current)
		return s.writeCounters(ctx, tx, key, updated)
	})
	if err != nil {
		return models.Counters{}, err
	}
	return updated, nil
}

// InitializePerformance creates the zero rows for a user in one transaction.
func (s *sqlStore) InitializePerformance(ctx context.Context, userEmail string, questionIDs []int, topicIDs []string) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "InitializePerformance",
		observability.AttributeUserEmail(userEmail),
		attribute.Int("question.count", len(questionIDs)),
		attribute.Int("topic.count", len(topicIDs)),
	)
	defer observability.FinishSpan(span, &err)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertPerformanceRows(ctx, tx, userEmail, questionIDs, topicIDs)
	})
}

// insertPerformanceRows writes one multi-row INSERT per table.
func (s *sqlStore) insertPerformanceRows(ctx context.Context, db queryer, userEmail string, questionIDs []int, topicIDs []string) error {
	zero := models.NewCounters()

	if len(questionIDs) > 0 {
		values := make([]string, 0, len(questionIDs))
		args := make([]interface{}, 0, len(questionIDs)*2+1)
		for _, id := range questionIDs {
			values = append(values, "(?, ?, 0, 0, 0, 0, 0, ?)")
			args = append(args, userEmail, id, zero.ProficiencyLevel)
		}
		query := "INSERT INTO question_performance (user_email, question_id, " + counterColumns + ") VALUES " + strings.Join(values, ", ")
		if _, err := db.ExecContext(ctx, s.q(query), args...); err != nil {
			return s.insertError(err, "question performance rows for %s", userEmail)
		}
	}

	if len(topicIDs) > 0 {
		values := make([]string, 0, len(topicIDs))
		args := make([]interface{}, 0, len(topicIDs)*3)
		for _, id := range topicIDs {
			values = append(values, "(?, ?, 0, 0, 0, 0, 0, ?)")
			args = append(args, userEmail, id, zero.ProficiencyLevel)
		}
		query := "INSERT INTO topic_performance (user_email, topic_id, " + counterColumns + ") VALUES " + strings.Join(values, ", ")
		if _, err := db.ExecContext(ctx, s.q(query), args...); err != nil {
			return s.insertError(err, "topic performance rows for %s", userEmail)
		}
	}
	return nil
}

func (s *sqlStore) insertError(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if s.dialect.isUnique != nil && s.dialect.isUnique(err) {
		return contextutils.WrapErrorf(contextutils.ErrRecordExists, "%s already exist", what)
	}
	return s.queryError(err, "failed to insert %s", what)
}

// TopicAccuracies returns the user's accuracy for every topic, ordered by topic ID.
func (s *sqlStore) TopicAccuracies(ctx context.Context, userEmail string) ([]models.TopicAccuracy, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT tp.topic_id, COALESCE(ti.topic_name, ''), tp.accuracy
		FROM topic_performance tp
		LEFT JOIN topic_info ti ON ti.topic_id = tp.topic_id
		WHERE tp.user_email = ?
		ORDER BY tp.topic_id`), userEmail)
	if err != nil {
		return nil, s.queryError(err, "failed to read topic accuracies for %s", userEmail)
	}
	defer func() { _ = rows.Close() }()

	var result []models.TopicAccuracy
	for rows.Next() {
		var ta models.TopicAccuracy
		if err := rows.Scan(&ta.TopicID, &ta.TopicName, &ta.Accuracy); err != nil {
			return nil, s.queryError(err, "failed to scan topic accuracy for %s", userEmail)
		}
		result = append(result, ta)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err, "failed to iterate topic accuracies for %s", userEmail)
	}
	return result, nil
}

// TopicsInBand returns topic IDs whose accuracy falls in band. The bounds are
// always bound as parameters.
func (s *sqlStore) TopicsInBand(ctx context.Context, userEmail string, band AccuracyBand) ([]string, error) {
	query := "SELECT topic_id FROM topic_performance WHERE user_email = ? AND accuracy >= ? AND accuracy < ? ORDER BY topic_id"
	if band.UpperInclusive {
		query = "SELECT topic_id FROM topic_performance WHERE user_email = ? AND accuracy >= ? AND accuracy <= ? ORDER BY topic_id"
	}
	return s.stringColumn(ctx, query, fmt.Sprintf("topics in band for %s", userEmail), userEmail, band.Lower, band.Upper)
}

// PerformanceTotals sums the outcome counters over the user's topic rows.
func (s *sqlStore) PerformanceTotals(ctx context.Context, userEmail string) (models.OutcomeTotals, error) {
	var t models.OutcomeTotals
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COALESCE(SUM(times_correct), 0), COALESCE(SUM(times_wrong), 0), COALESCE(SUM(times_unknown), 0)
		FROM topic_performance WHERE user_email = ?`), userEmail).Scan(&t.Correct, &t.Wrong, &t.Unknown)
	if err != nil {
		return models.OutcomeTotals{}, s.queryError(err, "failed to total performance for %s", userEmail)
	}
	return t, nil
}

// QuestionsForTopic returns the IDs of the topic's questions.
func (s *sqlStore) QuestionsForTopic(ctx context.Context, topicID string) ([]int, error) {
	return s.intColumn(ctx, "SELECT question_id FROM question_info WHERE topic_id = ? ORDER BY question_id",
		fmt.Sprintf("questions for topic %s", topicID), topicID)
}

// RandomQuestion returns a uniformly random question ID from the whole bank.
func (s *sqlStore) RandomQuestion(ctx context.Context) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, "SELECT question_id FROM question_info ORDER BY RANDOM() LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, contextutils.ErrNoQuestionsAvailable
	}
	if err != nil {
		return 0, s.queryError(err, "failed to pick a random question")
	}
	return id, nil
}

// GetQuestion returns one question including its correct answer.
func (s *sqlStore) GetQuestion(ctx context.Context, questionID int) (*models.Question, error) {
	var q models.Question
	var answers string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT question_id, question, answers, correct_answer, topic_id
		FROM question_info WHERE question_id = ?`), questionID).Scan(&q.ID, &q.Text, &answers, &q.CorrectAnswer, &q.TopicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrQuestionNotFound, "question %d does not exist", questionID)
	}
	if err != nil {
		return nil, s.queryError(err, "failed to read question %d", questionID)
	}
	if err := json.Unmarshal([]byte(answers), &q.Answers); err != nil {
		return nil, contextutils.WrapErrorf(err, "question %d has malformed answers", questionID)
	}
	return &q, nil
}

// GetTopic returns one topic.
func (s *sqlStore) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	var t models.Topic
	err := s.db.QueryRowContext(ctx, s.q("SELECT topic_id, topic_name FROM topic_info WHERE topic_id = ?"), topicID).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "topic %s does not exist", topicID)
	}
	if err != nil {
		return nil, s.queryError(err, "failed to read topic %s", topicID)
	}
	return &t, nil
}

// ListTopics returns all topics ordered by ID.
func (s *sqlStore) ListTopics(ctx context.Context) ([]models.Topic, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT topic_id, topic_name FROM topic_info ORDER BY topic_id")
	if err != nil {
		return nil, s.queryError(err, "failed to list topics")
	}
	defer func() { _ = rows.Close() }()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, s.queryError(err, "failed to scan topic")
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err, "failed to iterate topics")
	}
	return topics, nil
}

// ListQuestionIDs returns every question ID in the bank.
func (s *sqlStore) ListQuestionIDs(ctx context.Context) ([]int, error) {
	return s.intColumn(ctx, "SELECT question_id FROM question_info ORDER BY question_id", "question IDs")
}

// ListTopicIDs returns every topic ID.
func (s *sqlStore) ListTopicIDs(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, "SELECT topic_id FROM topic_info ORDER BY topic_id", "topic IDs")
}

// CountQuestions returns the size of the question bank.
func (s *sqlStore) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM question_info").Scan(&n); err != nil {
		return 0, s.queryError(err, "failed to count questions")
	}
	return n, nil
}

// UpsertTopic inserts or renames a topic.
func (s *sqlStore) UpsertTopic(ctx context.Context, topic models.Topic) error {
	return s.upsertTopic(ctx, s.db, topic)
}

// UpsertQuestion inserts or replaces a question.
func (s *sqlStore) UpsertQuestion(ctx context.Context, question models.Question) error {
	return s.upsertQuestion(ctx, s.db, question)
}

func (s *sqlStore) upsertTopic(ctx context.Context, db queryer, topic models.Topic) error {
	_, err := db.ExecContext(ctx, s.q(`INSERT INTO topic_info (topic_id, topic_name) VALUES (?, ?)
		ON CONFLICT (topic_id) DO UPDATE SET topic_name = excluded.topic_name`), topic.ID, topic.Name)
	if err != nil {
		return s.queryError(err, "failed to upsert topic %s", topic.ID)
	}
	return nil
}

func (s *sqlStore) upsertQuestion(ctx context.Context, db queryer, question models.Question) error {
	answers, err := json.Marshal(question.Answers)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to encode answers of question %d", question.ID)
	}
	_, err = db.ExecContext(ctx, s.q(`INSERT INTO question_info (question_id, question, answers, correct_answer, topic_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (question_id) DO UPDATE SET question = excluded.question, answers = excluded.answers,
			correct_answer = excluded.correct_answer, topic_id = excluded.topic_id`),
		question.ID, question.Text, string(answers), question.CorrectAnswer, question.TopicID)
	if err != nil {
		return s.queryError(err, "failed to upsert question %d", question.ID)
	}
	return nil
}

// The WHERE is required by SQLite to parse ON CONFLICT after INSERT ... SELECT.
const (
	backfillQuestionRows = `INSERT INTO question_performance (user_email, question_id, ` + counterColumns + `)
		SELECT u.user_email, q.question_id, 0, 0, 0, 0, 0, ?
		FROM user_info u CROSS JOIN question_info q
		WHERE true
		ON CONFLICT (user_email, question_id) DO NOTHING`
	backfillTopicRows = `INSERT INTO topic_performance (user_email, topic_id, ` + counterColumns + `)
		SELECT u.user_email, t.topic_id, 0, 0, 0, 0, 0, ?
		FROM user_info u CROSS JOIN topic_info t
		WHERE true
		ON CONFLICT (user_email, topic_id) DO NOTHING`
)

// SeedCatalog upserts topics and questions, then gives every existing account
// a zero row for each catalogue entry it lacks. Existing rows are left alone.
// Everything runs in one transaction; it returns the number of rows added.
func (s *sqlStore) SeedCatalog(ctx context.Context, topics []models.Topic, questions []models.Question) (result0 int64, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "SeedCatalog",
		attribute.Int("topic.count", len(topics)),
		attribute.Int("question.count", len(questions)),
	)
	defer observability.FinishSpan(span, &err)

	var added int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range topics {
			if err := s.upsertTopic(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, q := range questions {
			if err := s.upsertQuestion(ctx, tx, q); err != nil {
				return err
			}
		}
		for _, query := range []string{backfillQuestionRows, backfillTopicRows} {
			res, err := tx.ExecContext(ctx, s.q(query), models.InitialProficiencyLevel)
			if err != nil {
				return s.queryError(err, "failed to backfill performance rows")
			}
			if n, err := res.RowsAffected(); err == nil {
				added += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("performance.rows_added", added))
	return added, nil
}

const userColumns = "user_email, user_name, user_hashed_password, parent_email, parent_name, parent_hashed_password, course, created_at"

// CreateUserWithPerformance inserts the account and its zero performance rows in one transaction.
func (s *sqlStore) CreateUserWithPerformance(ctx context.Context, user *models.User, questionIDs []int, topicIDs []string) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "CreateUserWithPerformance",
		observability.AttributeUserEmail(user.Email),
	)
	defer observability.FinishSpan(span, &err)

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q("INSERT INTO user_info ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
			user.Email, user.Name, user.HashedPassword, user.ParentEmail, user.ParentName, user.ParentHashedPassword,
			user.Course, user.CreatedAt)
		if err != nil {
			return s.insertError(err, "account %s", user.Email)
		}
		return s.insertPerformanceRows(ctx, tx, user.Email, questionIDs, topicIDs)
	})
}

func (s *sqlStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, s.q("SELECT "+userColumns+" FROM user_info WHERE "+column+" = ?"), value).Scan(
		&u.Email, &u.Name, &u.HashedPassword, &u.ParentEmail, &u.ParentName, &u.ParentHashedPassword, &u.Course, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no account with %s %s", column, value)
	}
	if err != nil {
		return nil, s.queryError(err, "failed to read account by %s", column)
	}
	return &u, nil
}

// GetUserByEmail looks an account up by the student's email.
func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "user_email", email)
}

// GetUserByParentEmail looks an account up by the linked parent's email.
func (s *sqlStore) GetUserByParentEmail(ctx context.Context, parentEmail string) (*models.User, error) {
	return s.getUser(ctx, "parent_email", parentEmail)
}

func (s *sqlStore) exists(ctx context.Context, column, value string) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx, s.q("SELECT EXISTS (SELECT 1 FROM user_info WHERE "+column+" = ?)"), value).Scan(&found)
	if err != nil {
		return false, s.queryError(err, "failed to check %s", column)
	}
	return found, nil
}

// UserEmailExists reports whether a student already uses email.
func (s *sqlStore) UserEmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "user_email", email)
}

// ParentEmailExists reports whether a parent login already uses email.
func (s *sqlStore) ParentEmailExists(ctx context.Context, parentEmail string) (bool, error) {
	return s.exists(ctx, "parent_email", parentEmail)
}

// Ping checks the connection.
func (s *sqlStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"database ping failed", err.Error(), err)
	}
	return nil
}

// Close releases the connection pool.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) intColumn(ctx context.Context, query, what string, args ...interface{}) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, s.queryError(err, "failed to read %s", what)
	}
	defer func() { _ = rows.Close() }()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, s.queryError(err, "failed to scan %s", what)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err, "failed to iterate %s", what)
	}
	return out, nil
}

func (s *sqlStore) stringColumn(ctx context.Context, query, what string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, s.queryError(err, "failed to read %s", what)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, s.queryError(err, "failed to scan %s", what)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(err, "failed to iterate %s", what)
	}
	return out, nil
}
