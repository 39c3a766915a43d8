// Package prompts renders the transcript analysis prompt.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/caseload/internal/model"
)

//go:embed *.txt
var promptFS embed.FS

var (
	transcriptTagRegex         = regexp.MustCompile(`(?i)</?\s*transcript\b[^>]*>`)
	systemInstructionsTagRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// maxTranscriptRunes bounds the transcript text sent to the model.
const maxTranscriptRunes = 20000

// Variant selects how eagerly the analyzer proposes matches.
type Variant string

const (
	// VariantStandard lets the model infer students from context.
	VariantStandard Variant = "standard"
	// VariantStrict only accepts students named in the notes.
	VariantStrict Variant = "strict"
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return Variant(v) == VariantStandard || Variant(v) == VariantStrict
}

// RosterStudent is one student and their objectives as shown to the model.
type RosterStudent struct {
	ID         int64
	Name       string
	Category   string
	Objectives []model.Objective
}

// AnalyzeData holds template data for the analysis prompt.
type AnalyzeData struct {
	Students []RosterStudent
	Strict   bool
}

var (
	loadOnce        sync.Once
	loadErr         error
	analyzeTemplate *template.Template
)

func load() error {
	loadOnce.Do(func() {
		content, err := promptFS.ReadFile("analyze_standard.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt file: %w", err)
			return
		}
		analyzeTemplate, err = template.New("analyze").Parse(string(content))
		if err != nil {
			loadErr = fmt.Errorf("parse prompt template: %w", err)
		}
	})
	return loadErr
}

// BuildAnalyzePrompt renders the system prompt for a roster.
func BuildAnalyzePrompt(variant Variant, students []RosterStudent) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	if !IsValidVariant(string(variant)) {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	var buf bytes.Buffer
	data := AnalyzeData{Students: students, Strict: variant == VariantStrict}
	if err := analyzeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WrapTranscript sanitizes raw notes and wraps them for the user message.
func WrapTranscript(text string) string {
	return "<transcript>\n" + SanitizeTranscript(text) + "\n</transcript>"
}

// SanitizeTranscript strips tags that could break out of the transcript block and
// truncates very long input.
func SanitizeTranscript(text string) string {
	text = transcriptTagRegex.ReplaceAllString(text, "")
	text = systemInstructionsTagRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > maxTranscriptRunes {
		runes := []rune(text)
		text = string(runes[:maxTranscriptRunes]) + "\n\n[Transcript truncated due to length]"
	}
	return text
}
