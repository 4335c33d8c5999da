package server

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxNameLength     = 20
	maxAnswerLength   = 140
	maxPromptLength   = 280
	maxCategoryLength = 32
	maxQuestions      = 50
	maxOptions        = 8
)

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateAnswer(text string) (string, error) {
	return validateText("answer", text, maxAnswerLength)
}

func validateCategory(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > maxCategoryLength {
		return "", fmt.Errorf("category must be %d characters or fewer", maxCategoryLength)
	}
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' || r == '_' {
			continue
		}
		return "", errors.New("category contains unsupported characters")
	}
	return trimmed, nil
}

func validateScoringMode(raw string) (ScoringMode, error) {
	switch ScoringMode(raw) {
	case ModeSafeIfCorrect, ModeFirstCorrectWins:
		return ScoringMode(raw), nil
	case "":
		return ModeSafeIfCorrect, nil
	}
	return "", fmt.Errorf("unknown scoring mode %q", raw)
}

func validateQuestions(payloads []questionPayloadIn) ([]Question, error) {
	if len(payloads) == 0 {
		return nil, errors.New("questions are required")
	}
	if len(payloads) > maxQuestions {
		return nil, fmt.Errorf("at most %d questions per session", maxQuestions)
	}
	questions := make([]Question, 0, len(payloads))
	for i, payload := range payloads {
		prompt := strings.TrimSpace(payload.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("question %d: prompt is required", i)
		}
		if len(prompt) > maxPromptLength {
			return nil, fmt.Errorf("question %d: prompt must be %d characters or fewer", i, maxPromptLength)
		}
		correct := strings.TrimSpace(payload.CorrectAnswer)
		if correct == "" {
			return nil, fmt.Errorf("question %d: correct answer is required", i)
		}
		if len(payload.Options) > maxOptions {
			return nil, fmt.Errorf("question %d: at most %d options", i, maxOptions)
		}
		options := make([]string, 0, len(payload.Options))
		for _, option := range payload.Options {
			option = strings.TrimSpace(option)
			if option == "" {
				return nil, fmt.Errorf("question %d: empty option", i)
			}
			options = append(options, option)
		}
		id := strings.TrimSpace(payload.ID)
		if id == "" {
			id = fmt.Sprintf("q-%d", i+1)
		}
		questions = append(questions, Question{
			ID:            id,
			Category:      strings.TrimSpace(payload.Category),
			Type:          strings.TrimSpace(payload.Type),
			Prompt:        prompt,
			Options:       options,
			CorrectAnswer: correct,
		})
	}
	return questions, nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}
