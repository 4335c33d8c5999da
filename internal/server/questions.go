package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"quiz-clash/internal/db"
)

// drawQuestionsFromBank pulls a random ordered selection for a category.
// The bank is external content loaded by cmd/load-questions; the engine
// only ever reads it.
func (s *Server) drawQuestionsFromBank(category string, count int) ([]Question, error) {
	if s.db == nil {
		return nil, errors.New("question bank not configured")
	}
	if count <= 0 {
		count = s.cfg.QuestionCount
	}
	var records []db.QuestionBank
	query := s.db.Order("RANDOM()").Limit(count)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no questions for category %q", category)
	}
	questions := make([]Question, 0, len(records))
	for _, record := range records {
		var options []string
		if len(record.Options) > 0 {
			if err := json.Unmarshal(record.Options, &options); err != nil {
				return nil, fmt.Errorf("decode options for question %d: %w", record.ID, err)
			}
		}
		questions = append(questions, Question{
			ID:            fmt.Sprintf("bank-%d", record.ID),
			Category:      record.Category,
			Type:          record.Type,
			Prompt:        record.Prompt,
			Options:       options,
			CorrectAnswer: record.CorrectAnswer,
		})
	}
	return questions, nil
}
