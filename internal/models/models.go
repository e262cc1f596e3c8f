// Package models defines data structures used throughout the revision aid.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User is a student account. Each student has exactly one linked parent login.
type User struct {
	Email                string         `json:"user_email" yaml:"user_email"`
	Name                 string         `json:"user_name" yaml:"user_name"`
	HashedPassword       string         `json:"-" yaml:"-"`
	ParentEmail          string         `json:"parent_email" yaml:"parent_email"`
	ParentName           string         `json:"parent_name" yaml:"parent_name"`
	ParentHashedPassword string         `json:"-" yaml:"-"`
	Course               sql.NullString `json:"course" yaml:"course"`
	CreatedAt            time.Time      `json:"created_at" yaml:"created_at"`
}

// MarshalJSON customizes JSON marshaling for User so an unset course is null
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		Email       string    `json:"user_email"`
		Name        string    `json:"user_name"`
		ParentEmail string    `json:"parent_email"`
		ParentName  string    `json:"parent_name"`
		Course      *string   `json:"course"`
		CreatedAt   time.Time `json:"created_at"`
	}{
		Email:       u.Email,
		Name:        u.Name,
		ParentEmail: u.ParentEmail,
		ParentName:  u.ParentName,
		Course:      nullStringToPointer(u.Course),
		CreatedAt:   u.CreatedAt,
	})
}

// Principal is the identity attached to an authenticated request.
type Principal struct {
	// Email is the login email: the student's own or the parent's.
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsParent bool   `json:"is_parent"`
}

// Topic groups questions under a syllabus code such as "1.1.1".
type Topic struct {
	ID   string `json:"topic_id" yaml:"topic_id"`
	Name string `json:"topic_name" yaml:"topic_name"`
}

// AnswerCount is the number of choices every question carries.
const AnswerCount = 4

// Question is a multiple choice question belonging to one topic.
type Question struct {
	ID            int      `json:"question_id" yaml:"question_id"`
	Text          string   `json:"question" yaml:"question"`
	Answers       []string `json:"answers" yaml:"answers"`
	CorrectAnswer string   `json:"-" yaml:"correct_answer"`
	TopicID       string   `json:"topic_id" yaml:"topic_id"`
}

// HasAnswer reports whether answer is one of the question's choices.
func (q *Question) HasAnswer(answer string) bool {
	for _, a := range q.Answers {
		if a == answer {
			return true
		}
	}
	return false
}

// PerformanceKind says whether a performance row belongs to a question or a topic.
type PerformanceKind string

// Performance kinds
const (
	QuestionPerformanceKind PerformanceKind = "question"
	TopicPerformanceKind    PerformanceKind = "topic"
)

// PerformanceKey identifies one performance row. QuestionID is set for question rows
// and TopicID for topic rows.
type PerformanceKey struct {
	UserEmail  string
	Kind       PerformanceKind
	QuestionID int
	TopicID    string
}

// QuestionKey builds the key of a user's row for a question.
func QuestionKey(email string, questionID int) PerformanceKey {
	return PerformanceKey{UserEmail: email, Kind: QuestionPerformanceKind, QuestionID: questionID}
}

// TopicKey builds the key of a user's row for a topic.
func TopicKey(email, topicID string) PerformanceKey {
	return PerformanceKey{UserEmail: email, Kind: TopicPerformanceKind, TopicID: topicID}
}

// InitialProficiencyLevel is the level every new performance row starts at.
const InitialProficiencyLevel = 1

// Counters is the mutable state of a performance row.
type Counters struct {
	TimesAnswered    int     `json:"times_answered"`
	TimesCorrect     int     `json:"times_correct"`
	TimesWrong       int     `json:"times_wrong"`
	TimesUnknown     int     `json:"times_unknown"`
	Accuracy         float64 `json:"accuracy"`
	ProficiencyLevel int     `json:"proficiency_level"`
}

// NewCounters returns the all-zero counters a row is created with.
func NewCounters() Counters {
	return Counters{ProficiencyLevel: InitialProficiencyLevel}
}

// Consistent reports whether answered equals the sum of the outcome counters.
func (c Counters) Consistent() bool {
	return c.TimesAnswered == c.TimesCorrect+c.TimesWrong+c.TimesUnknown &&
		c.TimesCorrect <= c.TimesAnswered
}

// AnswerClassification is the outcome of one submitted answer.
type AnswerClassification string

// Answer classifications
const (
	AnswerCorrect AnswerClassification = "correct"
	AnswerWrong   AnswerClassification = "wrong"
	AnswerUnknown AnswerClassification = "unknown"
)

// Normalize maps anything unrecognised to AnswerUnknown.
func (a AnswerClassification) Normalize() AnswerClassification {
	switch a {
	case AnswerCorrect, AnswerWrong, AnswerUnknown:
		return a
	default:
		return AnswerUnknown
	}
}

// TopicAccuracy is one topic's accuracy for a user.
type TopicAccuracy struct {
	TopicID   string  `json:"topic_id"`
	TopicName string  `json:"topic_name,omitempty"`
	Accuracy  float64 `json:"accuracy"`
}

// OutcomeTotals sums outcome counters across all of a user's topics.
type OutcomeTotals struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Unknown int `json:"unknown"`
}

// Stats is the aggregate shown on the stats page.
type Stats struct {
	UserEmail string          `json:"user_email"`
	Totals    OutcomeTotals   `json:"totals"`
	Topics    []TopicAccuracy `json:"topics"`
}

// QuestionView is a question prepared for the quiz page, without its correct answer.
type QuestionView struct {
	QuestionID    int      `json:"question_id"`
	Question      string   `json:"question"`
	Answers       []string `json:"answers"`
	TopicID       string   `json:"topic_id"`
	TopicName     string   `json:"topic_name"`
	Accuracy      float64  `json:"accuracy"`
	TimesAnswered int      `json:"times_answered"`
}

// AnswerResult is returned after an answer is submitted.
type AnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
}

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}
