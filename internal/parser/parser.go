package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"paperpal/internal/models"
)

// LoadPDF extracts plain text from every page of the PDF at filePath,
// in page order. Pages whose text cannot be decoded are skipped with a
// warning rather than failing the whole document.
func LoadPDF(filePath string) ([]models.PageText, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	var pages []models.PageText
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("file", filePath).Msg("Skipping unreadable page")
			continue
		}
		pages = append(pages, models.PageText{
			Number: i,
			Text:   strings.TrimSpace(pageText),
		})
	}
	return pages, nil
}

// ExtractPage returns the plain text of a single page (1-based).
func ExtractPage(filePath string, pageNumber int) (string, error) {
	if pageNumber < 1 {
		return "", fmt.Errorf("invalid page number: %d", pageNumber)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	if pageNumber > reader.NumPage() {
		return "", fmt.Errorf("page %d out of bounds (document has %d pages)", pageNumber, reader.NumPage())
	}

	page := reader.Page(pageNumber)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", pageNumber)
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract page %d: %w", pageNumber, err)
	}
	return strings.TrimSpace(text), nil
}
