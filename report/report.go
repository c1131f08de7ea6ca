// Package report aggregates stored quiz attempts for the admin dashboard and exports.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"careerquiz/models"
	"careerquiz/quiz"
)

// Source is the read side of the result store.
type Source interface {
	All(ctx context.Context) ([]models.QuizAttempt, error)
}

type CareerShare struct {
	models.CareerCount
	Percent float64 `json:"percent"`
}

type Report struct {
	Attempts []models.QuizAttempt `json:"attempts"`
	Careers  []CareerShare        `json:"careers"`
	Total    int                  `json:"total"`
}

// Build reads every attempt once and counts careers from that snapshot. The
// three fixed career labels always appear, in band order; any other stored
// label follows alphabetically.
func Build(ctx context.Context, src Source) (Report, error) {
	attempts, err := src.All(ctx)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Attempts: attempts, Total: len(attempts)}
	counts := make(map[string]int)
	for _, a := range attempts {
		counts[a.Career]++
	}

	seen := make(map[string]bool, len(quiz.Careers))
	for _, label := range quiz.Careers {
		seen[label] = true
		rep.Careers = append(rep.Careers, share(label, counts[label], rep.Total))
	}
	var extra []string
	for label := range counts {
		if !seen[label] {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	for _, label := range extra {
		rep.Careers = append(rep.Careers, share(label, counts[label], rep.Total))
	}
	return rep, nil
}

func share(label string, n, total int) CareerShare {
	s := CareerShare{CareerCount: models.CareerCount{Career: label, Count: n}}
	if total > 0 {
		s.Percent = float64(n) * 100 / float64(total)
	}
	return s
}

var csvHeader = []string{"id", "username", "aptitude", "interest", "personality", "total", "career", "created_at"}

func WriteCSV(w io.Writer, attempts []models.QuizAttempt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range attempts {
		record := []string{
			strconv.FormatInt(a.ID, 10),
			a.Username,
			strconv.Itoa(a.Aptitude),
			strconv.Itoa(a.Interest),
			strconv.Itoa(a.Personality),
			strconv.Itoa(a.Total),
			a.Career,
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
