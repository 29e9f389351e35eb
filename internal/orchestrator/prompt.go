package orchestrator

import (
	"fmt"
	"strings"
)

// Length names the preset summary lengths selectable via the
// --length flag.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthXL     Length = "xl"
	LengthXXL    Length = "xxl"
)

// targetCharacters maps a named length to an approximate character
// budget for the prompt instruction. An explicit numeric maxCharacters
// from the caller is treated as a hard limit; the named form is
// always a soft guideline.
func targetCharacters(length Length) int {
	switch length {
	case LengthShort:
		return 500
	case LengthXL:
		return 4000
	case LengthXXL:
		return 8000
	default: // medium
		return 1500
	}
}

// estimateTokens approximates a token count from character count using
// the common ~4-characters-per-token heuristic. No tokenizer is
// available for every provider, so this stays a conservative estimate
// used only for the pre-flight refusal check and map-reduce chunk
// sizing.
func estimateTokens(text string) int {
	return len(text)/4 + 1
}

// buildSummaryPrompt constructs the system instruction for a
// whole-document (non-chunked) summarization call.
func buildSummaryPrompt(length Length, language, userPrompt string, maxCharacters int) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following content clearly and accurately.")
	if maxCharacters > 0 {
		fmt.Fprintf(&sb, " The summary MUST NOT exceed %d characters.", maxCharacters)
	} else {
		fmt.Fprintf(&sb, " Aim for approximately %d characters.", targetCharacters(length))
	}
	if language != "" {
		fmt.Fprintf(&sb, " Write the summary in %s.", language)
	}
	if userPrompt != "" {
		sb.WriteString(" ")
		sb.WriteString(userPrompt)
	}
	return sb.String()
}

// buildChunkNotesPrompt constructs the per-chunk "map" instruction for
// map-reduce summarization.
func buildChunkNotesPrompt(language string) string {
	prompt := "Extract the key points from this excerpt of a longer document as concise bullet notes. Do not summarize the whole document, only this excerpt."
	if language != "" {
		prompt += fmt.Sprintf(" Write the notes in %s.", language)
	}
	return prompt
}

// buildMergePrompt constructs the "reduce" instruction that turns
// per-chunk notes into the final summary.
func buildMergePrompt(length Length, language, userPrompt string, maxCharacters int) string {
	var sb strings.Builder
	sb.WriteString("The following are notes extracted from consecutive excerpts of one document, in order. Merge them into a single coherent summary.")
	if maxCharacters > 0 {
		fmt.Fprintf(&sb, " The summary MUST NOT exceed %d characters.", maxCharacters)
	} else {
		fmt.Fprintf(&sb, " Aim for approximately %d characters.", targetCharacters(length))
	}
	if language != "" {
		fmt.Fprintf(&sb, " Write the summary in %s.", language)
	}
	if userPrompt != "" {
		sb.WriteString(" ")
		sb.WriteString(userPrompt)
	}
	return sb.String()
}

// chunkText splits text into chunks of at most maxChars, breaking on
// paragraph boundaries where possible so a chunk never splits a
// sentence mid-word if a clean paragraph break is available nearby.
func chunkText(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		if current.Len()+len(para)+2 > maxChars && current.Len() > 0 {
			flush()
		}
		if len(para) > maxChars {
			// a single paragraph exceeds the budget on its own: hard-split it.
			flush()
			for len(para) > maxChars {
				chunks = append(chunks, para[:maxChars])
				para = para[maxChars:]
			}
			if para != "" {
				current.WriteString(para)
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}

// isEmptySummary reports whether a summary is empty: whitespace-only
// counts as empty.
func isEmptySummary(s string) bool {
	return strings.TrimSpace(s) == ""
}
