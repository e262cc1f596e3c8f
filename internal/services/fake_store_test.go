package services

import (
	"context"
	"sort"
	"sync"

	"revisionaid/internal/models"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	mu        sync.Mutex
	topics    map[string]models.Topic
	questions map[int]models.Question
	perf      map[models.PerformanceKey]models.Counters
	users     map[string]models.User

	// randomID is returned by RandomQuestion when set.
	randomID int
	// failUpdate, when set, can reject an UpdatePerformance call before it runs.
	failUpdate func(key models.PerformanceKey) error
	// bandErr is returned by TopicsInBand when set.
	bandErr      error
	randomCalls  int
	updateCalls  map[models.PerformanceKey]int
	createdUsers int
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		topics:      map[string]models.Topic{},
		questions:   map[int]models.Question{},
		perf:        map[models.PerformanceKey]models.Counters{},
		users:       map[string]models.User{},
		updateCalls: map[models.PerformanceKey]int{},
	}
}

func (m *memStore) addTopic(id, name string, accuracyByUser map[string]float64) {
	m.topics[id] = models.Topic{ID: id, Name: name}
	for email, acc := range accuracyByUser {
		m.perf[models.TopicKey(email, id)] = models.Counters{Accuracy: acc, ProficiencyLevel: 1}
	}
}

func (m *memStore) addQuestion(id int, topicID, correct string) {
	m.questions[id] = models.Question{
		ID:            id,
		Text:          "question",
		Answers:       []string{correct, "B", "C", "D"},
		CorrectAnswer: correct,
		TopicID:       topicID,
	}
}

func (m *memStore) TopicAccuracies(_ context.Context, userEmail string) ([]models.TopicAccuracy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TopicAccuracy
	for key, c := range m.perf {
		if key.UserEmail == userEmail && key.Kind == models.TopicPerformanceKind {
			out = append(out, models.TopicAccuracy{TopicID: key.TopicID, TopicName: m.topics[key.TopicID].Name, Accuracy: c.Accuracy})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

func (m *memStore) TopicsInBand(_ context.Context, userEmail string, band store.AccuracyBand) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bandErr != nil {
		return nil, m.bandErr
	}
	var out []string
	for key, c := range m.perf {
		if key.UserEmail == userEmail && key.Kind == models.TopicPerformanceKind && band.Contains(c.Accuracy) {
			out = append(out, key.TopicID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) ReadPerformance(_ context.Context, key models.PerformanceKey) (models.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.perf[key]
	if !ok {
		return models.Counters{}, contextutils.ErrPerformanceNotFound
	}
	return c, nil
}

func (m *memStore) WritePerformance(_ context.Context, key models.PerformanceKey, counters models.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perf[key]; !ok {
		return contextutils.ErrPerformanceNotFound
	}
	m.perf[key] = counters
	return nil
}

func (m *memStore) UpdatePerformance(_ context.Context, key models.PerformanceKey, fn store.UpdateFunc) (models.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls[key]++
	if m.failUpdate != nil {
		if err := m.failUpdate(key); err != nil {
			return models.Counters{}, err
		}
	}
	c, ok := m.perf[key]
	if !ok {
		return models.Counters{}, contextutils.ErrPerformanceNotFound
	}
	next := fn(c)
	m.perf[key] = next
	return next, nil
}

func (m *memStore) InitializePerformance(_ context.Context, userEmail string, questionIDs []int, topicIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initLocked(userEmail, questionIDs, topicIDs)
}

func (m *memStore) initLocked(userEmail string, questionIDs []int, topicIDs []string) error {
	for _, id := range questionIDs {
		if _, ok := m.perf[models.QuestionKey(userEmail, id)]; ok {
			return contextutils.ErrRecordExists
		}
	}
	for _, id := range questionIDs {
		m.perf[models.QuestionKey(userEmail, id)] = models.NewCounters()
	}
	for _, id := range topicIDs {
		m.perf[models.TopicKey(userEmail, id)] = models.NewCounters()
	}
	return nil
}

func (m *memStore) PerformanceTotals(_ context.Context, userEmail string) (models.OutcomeTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t models.OutcomeTotals
	for key, c := range m.perf {
		if key.UserEmail == userEmail && key.Kind == models.TopicPerformanceKind {
			t.Correct += c.TimesCorrect
			t.Wrong += c.TimesWrong
			t.Unknown += c.TimesUnknown
		}
	}
	return t, nil
}

func (m *memStore) QuestionsForTopic(_ context.Context, topicID string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for id, q := range m.questions {
		if q.TopicID == topicID {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (m *memStore) RandomQuestion(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.randomCalls++
	if len(m.questions) == 0 {
		return 0, contextutils.ErrNoQuestionsAvailable
	}
	if m.randomID != 0 {
		return m.randomID, nil
	}
	ids := make([]int, 0, len(m.questions))
	for id := range m.questions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids[0], nil
}

func (m *memStore) GetQuestion(_ context.Context, questionID int) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return nil, contextutils.ErrQuestionNotFound
	}
	return &q, nil
}

func (m *memStore) GetTopic(_ context.Context, topicID string) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[topicID]
	if !ok {
		return nil, contextutils.ErrRecordNotFound
	}
	return &t, nil
}

func (m *memStore) ListTopics(_ context.Context) ([]models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Topic
	for _, t := range m.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListQuestionIDs(_ context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for id := range m.questions {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func (m *memStore) ListTopicIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.topics {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) CountQuestions(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.questions), nil
}

func (m *memStore) UpsertTopic(_ context.Context, topic models.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[topic.ID] = topic
	return nil
}

func (m *memStore) UpsertQuestion(_ context.Context, question models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[question.ID] = question
	return nil
}

func (m *memStore) SeedCatalog(_ context.Context, topics []models.Topic, questions []models.Question) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range topics {
		m.topics[t.ID] = t
	}
	for _, q := range questions {
		m.questions[q.ID] = q
	}
	var added int64
	for email := range m.users {
		for id := range m.questions {
			if _, ok := m.perf[models.QuestionKey(email, id)]; !ok {
				m.perf[models.QuestionKey(email, id)] = models.NewCounters()
				added++
			}
		}
		for id := range m.topics {
			if _, ok := m.perf[models.TopicKey(email, id)]; !ok {
				m.perf[models.TopicKey(email, id)] = models.NewCounters()
				added++
			}
		}
	}
	return added, nil
}

func (m *memStore) CreateUserWithPerformance(_ context.Context, user *models.User, questionIDs []int, topicIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return contextutils.ErrRecordExists
	}
	for _, u := range m.users {
		if u.ParentEmail == user.ParentEmail {
			return contextutils.ErrRecordExists
		}
	}
	if err := m.initLocked(user.Email, questionIDs, topicIDs); err != nil {
		return err
	}
	m.users[user.Email] = *user
	m.createdUsers++
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, contextutils.ErrRecordNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByParentEmail(_ context.Context, parentEmail string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ParentEmail == parentEmail {
			return &u, nil
		}
	}
	return nil, contextutils.ErrRecordNotFound
}

func (m *memStore) UserEmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (m *memStore) ParentEmailExists(ctx context.Context, parentEmail string) (bool, error) {
	_, err := m.GetUserByParentEmail(ctx, parentEmail)
	return err == nil, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) Close() error { return nil }
