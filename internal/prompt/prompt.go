package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"paperpal/internal/models"
)

// Mode selects which context dominates the composed prompt.
type Mode string

const (
	// ModePage treats the currently viewed page as primary context and
	// retrieved fragments as supplementary.
	ModePage Mode = "page"
	// ModeDocument treats retrieved fragments as primary context; page
	// text is omitted.
	ModeDocument Mode = "document"
)

// ParseMode maps a request value to a Mode, defaulting to ModePage.
func ParseMode(s string) Mode {
	if Mode(s) == ModeDocument {
		return ModeDocument
	}
	return ModePage
}

// Input carries everything the composer may fold into one prompt.
type Input struct {
	Question   string
	PaperID    string
	PageNumber int
	PageText   string
	// PageTextOK is false when no page text could be obtained (missing
	// page number, extraction failure, or document mode).
	PageTextOK bool
	Fragments  []models.Fragment
	Language   string
}

// Compose assembles the instruction string for the completion client.
// Output is deterministic: identical inputs produce identical strings, and
// missing sections are rendered as explicit placeholders so the prompt
// shape stays stable.
func Compose(in Input, mode Mode) string {
	language := in.Language
	if language == "" {
		language = "Traditional Chinese"
	}
	fragments := fragmentsSection(in.Fragments)

	if mode == ModeDocument {
		return fmt.Sprintf(models.DocumentPriorityPromptTemplate,
			in.PaperID, fragments, in.Question, language)
	}

	pageLabel := "?"
	if in.PageNumber >= 1 {
		pageLabel = strconv.Itoa(in.PageNumber)
	}
	return fmt.Sprintf(models.PagePriorityPromptTemplate,
		in.PaperID, pageLabel, pageSection(in), fragments, in.Question, language)
}

// Translation builds the fixed-target-language translation prompt.
func Translation(text, language string) string {
	if language == "" {
		language = "Traditional Chinese"
	}
	return fmt.Sprintf(models.TranslatePromptTemplate, language, text)
}

// PageAnalysis builds the vision prompt for a rendered page image.
func PageAnalysis(pageLabel, language string) string {
	if pageLabel == "" {
		pageLabel = "unknown"
	}
	if language == "" {
		language = "Traditional Chinese"
	}
	return fmt.Sprintf(models.AnalyzePagePromptTemplate, pageLabel, language)
}

func pageSection(in Input) string {
	if !in.PageTextOK {
		return models.PageTextPlaceholder
	}
	text := in.PageText
	if strings.TrimSpace(text) == "" {
		text = models.EmptyPagePlaceholder
	}
	header := fmt.Sprintf(models.PageSectionHeader, in.PageNumber)
	return fmt.Sprintf("%s\n\"\"\"\n%s\n\"\"\"", header, text)
}

func fragmentsSection(fragments []models.Fragment) string {
	if len(fragments) == 0 {
		return models.FragmentsPlaceholder
	}
	var b strings.Builder
	b.WriteString(models.FragmentsHeader)
	for i, frag := range fragments {
		b.WriteString("\n")
		fmt.Fprintf(&b, models.FragmentLabel, i+1)
		b.WriteString("\n")
		b.WriteString(frag.Content)
	}
	return b.String()
}
