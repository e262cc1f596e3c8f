// Package store persists accounts, the question catalogue and per-user performance rows.
//
// Two implementations share one SQL core: PostgresStore for deployments and
// SQLiteStore for local development and tests. Every read-modify-write of a
// performance row happens inside a single transaction that holds the row lock,
// so concurrent answers for the same row never lose an update.
package store

import (
	"context"

	"revisionaid/internal/models"
)

// AccuracyBand is a range of topic accuracies. Lower is inclusive; Upper is
// exclusive unless UpperInclusive is set.
type AccuracyBand struct {
	Lower          float64
	Upper          float64
	UpperInclusive bool
}

// Contains reports whether accuracy falls inside the band.
func (b AccuracyBand) Contains(accuracy float64) bool {
	if accuracy < b.Lower {
		return false
	}
	if b.UpperInclusive {
		return accuracy <= b.Upper
	}
	return accuracy < b.Upper
}

// UpdateFunc computes a row's new counters from its current ones.
type UpdateFunc func(current models.Counters) models.Counters

// PerformanceStore holds per-user question and topic counters.
type PerformanceStore interface {
	// TopicAccuracies returns every topic row for the user ordered by topic ID.
	TopicAccuracies(ctx context.Context, userEmail string) ([]models.TopicAccuracy, error)
	// TopicsInBand returns the user's topic IDs whose accuracy lies in band.
	TopicsInBand(ctx context.Context, userEmail string, band AccuracyBand) ([]string, error)
	ReadPerformance(ctx context.Context, key models.PerformanceKey) (models.Counters, error)
	WritePerformance(ctx context.Context, key models.PerformanceKey, counters models.Counters) error
	// UpdatePerformance locks the row, applies fn and writes the result in one transaction.
	UpdatePerformance(ctx context.Context, key models.PerformanceKey, fn UpdateFunc) (models.Counters, error)
	// InitializePerformance creates every zero row for a user, all or nothing.
	InitializePerformance(ctx context.Context, userEmail string, questionIDs []int, topicIDs []string) error
	PerformanceTotals(ctx context.Context, userEmail string) (models.OutcomeTotals, error)
}

// CatalogStore holds topics and questions.
type CatalogStore interface {
	QuestionsForTopic(ctx context.Context, topicID string) ([]int, error)
	RandomQuestion(ctx context.Context) (int, error)
	GetQuestion(ctx context.Context, questionID int) (*models.Question, error)
	GetTopic(ctx context.Context, topicID string) (*models.Topic, error)
	ListTopics(ctx context.Context) ([]models.Topic, error)
	ListQuestionIDs(ctx context.Context) ([]int, error)
	ListTopicIDs(ctx context.Context) ([]string, error)
	CountQuestions(ctx context.Context) (int, error)
	UpsertTopic(ctx context.Context, topic models.Topic) error
	UpsertQuestion(ctx context.Context, question models.Question) error
	// SeedCatalog upserts the catalogue and adds the missing zero performance
	// rows for every existing account, all or nothing.
	SeedCatalog(ctx context.Context, topics []models.Topic, questions []models.Question) (int64, error)
}

// UserStore holds student accounts and their linked parent logins.
type UserStore interface {
	// CreateUserWithPerformance inserts the account and all of its performance rows atomically.
	CreateUserWithPerformance(ctx context.Context, user *models.User, questionIDs []int, topicIDs []string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByParentEmail(ctx context.Context, parentEmail string) (*models.User, error)
	UserEmailExists(ctx context.Context, email string) (bool, error)
	ParentEmailExists(ctx context.Context, parentEmail string) (bool, error)
}

// Store is everything the services need from persistence.
type Store interface {
	PerformanceStore
	CatalogStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
