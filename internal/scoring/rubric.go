package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Section is one block of the evaluation checklist. Key must match the
// JSON field the model is asked to fill.
type Section struct {
	Key      string   `yaml:"key"`
	Title    string   `yaml:"title"`
	Max      int      `yaml:"max"`
	Criteria []string `yaml:"criteria"`
}

// DefaultRubric is the built-in checklist: five main sections on a 0-10
// scale plus a 0-5 bonus section.
func DefaultRubric() []Section {
	return []Section{
		{
			Key: "greeting", Title: "GREETING", Max: 10,
			Criteria: []string{
				"Named the clinic (\"L7 Mammology Center\")?",
				"Introduced themselves by name?",
				"Polite greeting (good morning/afternoon/evening)?",
				"Asked \"How can I help you?\"",
			},
		},
		{
			Key: "needs", Title: "NEEDS DISCOVERY", Max: 10,
			Criteria: []string{
				"Asked clarifying questions (at least 3)?",
				"Listened to the client without interrupting?",
				"Clarified details (age, cycle day, etc.)?",
			},
		},
		{
			Key: "presentation", Title: "PRESENTATION", Max: 10,
			Criteria: []string{
				"Named competitive advantages (market leader, doctor experience, equipment)?",
				"Described the service/doctor in detail?",
				"Actively offered two time slots to choose from?",
				"Stated the price clearly (amount and what is included)?",
				"Offered additional services where appropriate?",
			},
		},
		{
			Key: "objection", Title: "OBJECTION HANDLING", Max: 10,
			Criteria: []string{
				"If the client objected (\"too expensive\", \"I'll think about it\"), worked the objection per the script (quality/equipment arguments)?",
				"If there were NO objections, score 10.",
				"If the operator gave up without trying, score 0-3.",
			},
		},
		{
			Key: "closing", Title: "CLOSING", Max: 10,
			Criteria: []string{
				"Summarized the agreement (date, time, doctor, address)?",
				"Asked \"Do you have any remaining questions?\"",
				"Asked \"How did you hear about us?\" (marketing question, important)",
				"Said goodbye using the client's name?",
			},
		},
		{
			Key: "bonus", Title: "BONUS POINTS", Max: 5,
			Criteria: []string{
				"Took initiative and led the conversation?",
				"Clear, articulate speech?",
				"Pleasant, upbeat, friendly tone?",
			},
		},
	}
}

// LoadRubric reads a section list from a YAML file, letting deployments
// adjust the checklist without a rebuild.
func LoadRubric(path string) ([]Section, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	var sections []Section
	if err := yaml.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("rubric %s defines no sections", path)
	}
	for i, s := range sections {
		if s.Key == "" || s.Max <= 0 {
			return nil, fmt.Errorf("rubric section %d missing key or max", i)
		}
	}
	return sections, nil
}
