// Package checkin implements the dynamic check-in question/response engine (C1):
// catalog loading, answer parsing and validation, and response/transition phrase selection.
package checkin

import (
	"encoding/json"
	"fmt"
	"os"
)

// Validation bounds a question's accepted numeric range, or carries a custom error message.
type Validation struct {
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Question describes one catalog entry.
type Question struct {
	Key              string     `json:"key"`
	Type             string     `json:"type"` // scale_1_5, yes_no, number, optional_text
	Text             string     `json:"text"`
	EnabledByDefault bool       `json:"enabled_by_default"`
	Category         string     `json:"category"`
	Validation       Validation `json:"validation"`
	UIDisplayName    string     `json:"ui_display_name"`
}

// ResponseBank is the wire shape of responses.json.
type ResponseBank struct {
	Responses          map[string]map[string][]string `json:"responses"`
	TransitionPhrases  []string                        `json:"transition_phrases"`
}

// Catalog is the immutable, process-lifetime question/response set.
type Catalog struct {
	Questions         []Question
	byKey             map[string]*Question
	Responses         map[string]map[string][]string
	TransitionPhrases []string
}

// LoadCatalog reads the question and response catalogs from disk. Loaded once at startup;
// the returned Catalog is read-only thereafter.
func LoadCatalog(questionsPath, responsesPath string) (*Catalog, error) {
	qRaw, err := os.ReadFile(questionsPath)
	if err != nil {
		return nil, fmt.Errorf("checkin: reading questions catalog: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(qRaw, &questions); err != nil {
		return nil, fmt.Errorf("checkin: parsing questions catalog: %w", err)
	}

	rRaw, err := os.ReadFile(responsesPath)
	if err != nil {
		return nil, fmt.Errorf("checkin: reading response bank: %w", err)
	}
	var bank ResponseBank
	if err := json.Unmarshal(rRaw, &bank); err != nil {
		return nil, fmt.Errorf("checkin: parsing response bank: %w", err)
	}

	c := &Catalog{
		Questions:         questions,
		byKey:             make(map[string]*Question, len(questions)),
		Responses:         bank.Responses,
		TransitionPhrases: bank.TransitionPhrases,
	}
	for i := range c.Questions {
		c.byKey[c.Questions[i].Key] = &c.Questions[i]
	}
	return c, nil
}

// Question returns the catalog entry for a key, or nil if unknown.
func (c *Catalog) Question(key string) *Question {
	return c.byKey[key]
}

// EnabledKeys returns the keys of every question enabled by default, in catalog order.
func (c *Catalog) EnabledKeys() []string {
	var keys []string
	for _, q := range c.Questions {
		if q.EnabledByDefault {
			keys = append(keys, q.Key)
		}
	}
	return keys
}
