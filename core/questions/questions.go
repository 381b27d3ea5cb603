// Package questions provides the question sets an interview is run from.
package questions

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoQuestions = errors.New("question set contains no questions")

// Set is a list of questions and the job they were written for.
type Set struct {
	JobDescription string   `yaml:"job_description"`
	Questions      []string `yaml:"questions"`
}

// Validate trims the set and fails when no usable question remains.
func (s *Set) Validate() error {
	s.JobDescription = strings.TrimSpace(s.JobDescription)
	questions := make([]string, 0, len(s.Questions))
	for _, question := range s.Questions {
		if question = strings.TrimSpace(question); question != "" {
			questions = append(questions, question)
		}
	}
	s.Questions = questions
	if len(s.Questions) == 0 {
		return ErrNoQuestions
	}
	return nil
}

// LoadFile reads a YAML question set:
//
//	job_description: Backend engineer working on payments
//	questions:
//	  - Tell me about yourself.
//	  - How do you design idempotent APIs?
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read question file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("failed to parse question file: %w", err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}
