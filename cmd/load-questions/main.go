package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"quiz-clash/internal/config"
	"quiz-clash/internal/db"

	"gorm.io/datatypes"
)

// Loads a question bank CSV into Postgres. Columns:
// category,type,prompt,options,correct_answer — options are
// pipe-separated and may be empty for free-text questions.

type questionRecord struct {
	Category      string
	Type          string
	Prompt        string
	Options       []string
	CorrectAnswer string
}

func main() {
	filePath := flag.String("file", "questions.csv", "path to questions csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	records, err := readQuestions(*filePath)
	if err != nil {
		log.Fatalf("failed to read questions: %v", err)
	}

	inserted := 0
	for _, record := range records {
		options, err := json.Marshal(record.Options)
		if err != nil {
			log.Fatalf("failed to encode options: %v", err)
		}
		entry := db.QuestionBank{
			Category:      record.Category,
			Type:          record.Type,
			Prompt:        record.Prompt,
			Options:       datatypes.JSON(options),
			CorrectAnswer: record.CorrectAnswer,
		}
		if err := conn.FirstOrCreate(&entry, db.QuestionBank{Category: entry.Category, Prompt: entry.Prompt}).Error; err != nil {
			log.Fatalf("failed to upsert question: %v", err)
		}
		inserted++
	}

	log.Printf("loaded %d questions", inserted)
}

func readQuestions(path string) ([]questionRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 5

	var records []questionRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(row[0], "category") {
			continue
		}
		record := questionRecord{
			Category:      strings.TrimSpace(row[0]),
			Type:          strings.TrimSpace(row[1]),
			Prompt:        strings.TrimSpace(row[2]),
			CorrectAnswer: strings.TrimSpace(row[4]),
		}
		if options := strings.TrimSpace(row[3]); options != "" {
			for _, option := range strings.Split(options, "|") {
				option = strings.TrimSpace(option)
				if option != "" {
					record.Options = append(record.Options, option)
				}
			}
		}
		if record.Prompt == "" || record.CorrectAnswer == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
