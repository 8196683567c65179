package stubapi

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/drills/internal/models"
)

// Fixture file names
const (
	categoriesFile = "categories.yaml"
	exerciseFile   = "exercise.py"
	resultFile     = "result.yaml"
)

// FallbackCategory groups every topic when no categories.yaml exists
const FallbackCategory = "All"

// Exercise is one fixture exercise
type Exercise struct {
	Topic string
	Name  string
	Code  string

	// Result is replayed for every run; nil means a passing run
	Result *models.RunResponse
}

// Catalog holds fixture categories, topics and exercises
type Catalog struct {
	mu         sync.RWMutex
	categories models.Categories
	topics     map[string][]string
	exercises  map[string]*Exercise
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		categories: make(models.Categories),
		topics:     make(map[string][]string),
		exercises:  make(map[string]*Exercise),
	}
}

func exerciseKey(topic, name string) string {
	return topic + "/" + name
}

// LoadFromDir scans dir for <topic>/<name>/exercise.py fixtures and reads
// categories.yaml. Unreadable exercises are skipped with a warning.
func (c *Catalog) LoadFromDir(dir string) error {
	slog.Info("loading fixtures from directory", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var topics []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		n, err := c.loadTopic(entry.Name(), filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("failed to load topic", "topic", entry.Name(), "error", err)
			continue
		}
		if n == 0 {
			continue // not a topic directory
		}
		topics = append(topics, entry.Name())
		slog.Info("fixture topic loaded", "topic", entry.Name(), "exercises", n)
	}

	categories, err := loadCategories(filepath.Join(dir, categoriesFile))
	if errors.Is(err, os.ErrNotExist) {
		sort.Strings(topics)
		categories = models.Categories{FallbackCategory: topics}
	} else if err != nil {
		return err
	}

	c.mu.Lock()
	for name, list := range categories {
		c.categories[name] = list
	}
	c.mu.Unlock()

	slog.Info("fixtures loaded", "topics", len(topics), "categories", len(categories))
	return nil
}

// loadTopic loads the exercises of one topic directory, sorted by name
func (c *Catalog) loadTopic(topic, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read topic dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		exDir := filepath.Join(dir, entry.Name())
		code, err := os.ReadFile(filepath.Join(exDir, exerciseFile))
		if errors.Is(err, os.ErrNotExist) {
			continue // not an exercise directory
		}
		if err != nil {
			slog.Warn("failed to read exercise", "topic", topic, "name", entry.Name(), "error", err)
			continue
		}

		result, err := loadResult(filepath.Join(exDir, resultFile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("ignoring scripted result", "topic", topic, "name", entry.Name(), "error", err)
			result = nil
		}

		c.Add(&Exercise{
			Topic:  topic,
			Name:   entry.Name(),
			Code:   string(code),
			Result: result,
		})
		loaded++
	}

	return loaded, nil
}

// Add registers an exercise, appending it to its topic
func (c *Catalog) Add(ex *Exercise) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := exerciseKey(ex.Topic, ex.Name)
	if _, exists := c.exercises[key]; !exists {
		c.topics[ex.Topic] = append(c.topics[ex.Topic], ex.Name)
	}
	c.exercises[key] = ex
}

// SetCategory replaces the topic list of a category
func (c *Catalog) SetCategory(name string, topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories[name] = append([]string(nil), topics...)
}

// Categories returns category -> ordered topics
func (c *Catalog) Categories() models.Categories {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(models.Categories, len(c.categories))
	for name, topics := range c.categories {
		result[name] = append([]string(nil), topics...)
	}
	return result
}

// Topics returns topic -> ordered exercise names
func (c *Catalog) Topics() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]string, len(c.topics))
	for topic, names := range c.topics {
		result[topic] = append([]string(nil), names...)
	}
	return result
}

// Get returns an exercise, nil if unknown
func (c *Catalog) Get(topic, name string) *Exercise {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exercises[exerciseKey(topic, name)]
}

// --- YAML file structs ---

// categoriesDoc represents the YAML structure of categories.yaml
type categoriesDoc struct {
	Categories map[string][]string `yaml:"categories"`
}

// resultDoc represents the YAML structure of a scripted result.yaml
type resultDoc struct {
	Passed    bool   `yaml:"passed"`
	Output    string `yaml:"output"`
	Detail    string `yaml:"detail"`
	ErrorType string `yaml:"error_type"`
}

func loadCategories(path string) (models.Categories, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc categoriesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", categoriesFile, err)
	}
	return models.Categories(doc.Categories), nil
}

func loadResult(path string) (*models.RunResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc resultDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", resultFile, err)
	}

	return &models.RunResponse{
		Passed:    doc.Passed,
		Output:    doc.Output,
		Detail:    doc.Detail,
		ErrorType: models.ErrorType(doc.ErrorType),
	}, nil
}
