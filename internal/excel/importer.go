package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/cardsync/pkg/models"
)

// CardCreator is the part of the service the importer needs
type CardCreator interface {
	CreateCard(card models.Card) (models.Card, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	DeckID      string // Deck the imported cards belong to
	FrontColumn string // Column with the card front
	BackColumn  string // Column with the card back
	SheetName   string // Name of the sheet to import
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn: "A",
		BackColumn:  "B",
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// ImportCards imports cards from an Excel or CSV file into a deck.
// Cards are created through the service, so an import made while the
// device is offline ends up in the mutation queue like any other change.
func ImportCards(creator CardCreator, config ImportConfig) (*ImportResult, error) {
	if config.DeckID == "" {
		return nil, fmt.Errorf("deck id is required for import")
	}

	// Check the file extension
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return importFromCSV(creator, config)
	}
	return importFromExcel(creator, config)
}

// importFromExcel imports cards from an Excel file
func importFromExcel(creator CardCreator, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	frontIdx := columnToIndex(config.FrontColumn)
	backIdx := columnToIndex(config.BackColumn)

	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		importRow(creator, config.DeckID, cellAt(row, frontIdx), cellAt(row, backIdx), i+1, result)
	}

	return result, nil
}

// importFromCSV imports cards from a CSV file: front in the first
// column, back in the second.
func importFromCSV(creator CardCreator, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++

		// Skip header rows
		if rowNum < config.StartRow {
			continue
		}

		importRow(creator, config.DeckID, cellAt(row, 0), cellAt(row, 1), rowNum, result)
	}

	return result, nil
}

// importRow creates a single card, recording skips and failures
func importRow(creator CardCreator, deckID, front, back string, rowNum int, result *ImportResult) {
	result.TotalProcessed++

	front = strings.TrimSpace(front)
	back = strings.TrimSpace(back)

	// Неполные строки пропускаем, импорт не прерываем
	if front == "" || back == "" {
		result.Skipped++
		return
	}

	_, err := creator.CreateCard(models.Card{
		DeckID: deckID,
		Front:  front,
		Back:   back,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		result.Skipped++
		return
	}

	result.Created++
}

// cellAt returns the cell at index or "" when the row is shorter
func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
