// Package quiz holds the fixed career-aptitude question set and the scoring rubric.
package quiz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CareerTech     = "AI / Data Science / Software Engineer"
	CareerBusiness = "Web Developer / Business Analyst"
	CareerCreative = "Design / Arts / Humanities"

	techThreshold     = 75
	businessThreshold = 50

	pointsPerAnswer = 10
)

// Careers lists every label Score can produce, highest band first.
var Careers = []string{CareerTech, CareerBusiness, CareerCreative}

var ErrMalformedAnswer = errors.New("malformed answer")

type Section string

const (
	SectionAptitude    Section = "aptitude"
	SectionInterest    Section = "interest"
	SectionPersonality Section = "personality"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Question struct {
	ID      string   `json:"id"`
	Section Section  `json:"section"`
	Text    string   `json:"text"`
	Options []Option `json:"options,omitempty"`
	correct string
}

var yesNo = []Option{{"yes", "Yes"}, {"no", "No"}}

var questions = []Question{
	{ID: "q1", Section: SectionAptitude, Text: "What is the next number in the series 2, 4, 8, 16, ...?",
		Options: []Option{{"a", "24"}, {"b", "32"}, {"c", "30"}, {"d", "20"}}, correct: "b"},
	{ID: "q2", Section: SectionAptitude, Text: "If all bloops are razzies and all razzies are lazzies, are all bloops lazzies?",
		Options: []Option{{"a", "Yes"}, {"b", "No"}, {"c", "Only some"}, {"d", "Cannot be determined"}}, correct: "a"},
	{ID: "q3", Section: SectionAptitude, Text: "A task takes 6 people 4 days. How many days does it take 8 people?",
		Options: []Option{{"a", "2"}, {"b", "5"}, {"c", "3"}, {"d", "4"}}, correct: "c"},
	{ID: "i1", Section: SectionInterest, Text: "Do you enjoy solving puzzles and logic problems?", Options: yesNo},
	{ID: "i2", Section: SectionInterest, Text: "Do you like working with computers and technology?", Options: yesNo},
	{ID: "i3", Section: SectionInterest, Text: "Would you enjoy analysing data to find patterns?", Options: yesNo},
	{ID: "p1", Section: SectionPersonality, Text: "Rate your patience when a problem takes a long time (1-10)."},
	{ID: "p2", Section: SectionPersonality, Text: "Rate how much you enjoy learning new tools on your own (1-10)."},
	{ID: "p3", Section: SectionPersonality, Text: "Rate your attention to detail (1-10)."},
}

// Questions returns a copy of the question set in display order.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// Result is the outcome of scoring one answer set.
type Result struct {
	Aptitude    int    `json:"aptitude"`
	Interest    int    `json:"interest"`
	Personality int    `json:"personality"`
	Total       int    `json:"total"`
	Career      string `json:"career"`
}

// Score maps submitted answers to subscores, a total and a career label.
//
// Aptitude and interest answers that are missing or wrong score 0. A missing
// personality answer scores 0; a present one must be a 32-bit base-10 integer
// and is added as-is, otherwise ErrMalformedAnswer is returned.
func Score(answers map[string]string) (Result, error) {
	var res Result
	for _, q := range questions {
		ans, present := answers[q.ID]
		switch q.Section {
		case SectionAptitude:
			if present && ans == q.correct {
				res.Aptitude += pointsPerAnswer
			}
		case SectionInterest:
			if present && ans == "yes" {
				res.Interest += pointsPerAnswer
			}
		case SectionPersonality:
			if !present {
				continue
			}
			n, err := strconv.ParseInt(strings.TrimSpace(ans), 10, 32)
			if err != nil {
				return Result{}, fmt.Errorf("%w: %s must be a whole number", ErrMalformedAnswer, q.ID)
			}
			res.Personality += int(n)
		}
	}
	res.Total = res.Aptitude + res.Interest + res.Personality
	res.Career = CareerFor(res.Total)
	return res, nil
}

func CareerFor(total int) string {
	switch {
	case total >= techThreshold:
		return CareerTech
	case total >= businessThreshold:
		return CareerBusiness
	default:
		return CareerCreative
	}
}

// AnswerIDs lists the form field names the quiz reads.
func AnswerIDs() []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
