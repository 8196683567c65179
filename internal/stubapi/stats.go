package stubapi

import (
	"sync"

	"github.com/terra-clan/drills/internal/models"
)

// StatsEntry counts the attempts of one exercise
type StatsEntry struct {
	Attempts int `json:"attempts"`
	Passes   int `json:"passes"`
}

// Stats keeps per-exercise attempt counters in memory
type Stats struct {
	mu      sync.RWMutex
	entries map[string]StatsEntry
}

// NewStats creates empty counters
func NewStats() *Stats {
	return &Stats{entries: make(map[string]StatsEntry)}
}

// RecordAttempt counts one run of topic/name
func (s *Stats) RecordAttempt(topic, name string, passed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := exerciseKey(topic, name)
	e := s.entries[key]
	e.Attempts++
	if passed {
		e.Passes++
	}
	s.entries[key] = e
}

// Get returns the counters of topic/name
func (s *Stats) Get(topic, name string) StatsEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[exerciseKey(topic, name)]
}

// Reset drops the counters of topic/name
func (s *Stats) Reset(topic, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, exerciseKey(topic, name))
}

// All returns "topic/name" -> counters
func (s *Stats) All() map[string]StatsEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]StatsEntry, len(s.entries))
	for k, v := range s.entries {
		result[k] = v
	}
	return result
}

// Summaries builds the exercise listing for the given topics
func (s *Stats) Summaries(topics map[string][]string) models.ExercisesByTopic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(models.ExercisesByTopic, len(topics))
	for topic, names := range topics {
		list := make([]models.ExerciseSummary, 0, len(names))
		for _, name := range names {
			e := s.entries[exerciseKey(topic, name)]
			list = append(list, models.ExerciseSummary{
				Name:     name,
				Attempts: e.Attempts,
				Passes:   e.Passes,
			})
		}
		result[topic] = list
	}
	return result
}
