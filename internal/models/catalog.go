package models

// Categories maps a category name to the ordered topic names it groups
type Categories map[string][]string

// ExerciseSummary is a listing entry for one exercise of a topic
type ExerciseSummary struct {
	Name     string `json:"name"`
	Attempts int    `json:"attempts"`
	Passes   int    `json:"passes"`
}

// ExercisesByTopic maps a topic name to its ordered exercise summaries
type ExercisesByTopic map[string][]ExerciseSummary

// Find looks up the summary of topic/name
func (e ExercisesByTopic) Find(topic, name string) (ExerciseSummary, bool) {
	for _, ex := range e[topic] {
		if ex.Name == name {
			return ex, true
		}
	}
	return ExerciseSummary{}, false
}

// TopicExercises is one entry of a category listing
type TopicExercises struct {
	Topic     string            `json:"topic"`
	Exercises []ExerciseSummary `json:"exercises"`
}

// ExerciseDetail is the payload of GET /api/exercises/{topic}/{name}
type ExerciseDetail struct {
	Code string `json:"code"`
}

// Selection identifies the exercise a session is working on
type Selection struct {
	Topic string `json:"topic"`
	Name  string `json:"name"`
}

// String returns "topic/name"
func (s Selection) String() string {
	return s.Topic + "/" + s.Name
}
