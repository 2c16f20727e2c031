package speech

import (
	"log/slog"
	"regexp"
	"strings"
)

// Speech pacing for Portuguese at ElevenLabs' default rate. One chunk is
// roughly one minute of audio; three chunks is the ceiling for a single
// reply.
const (
	WordsPerMinute   = 150
	MaxAudios        = 3
	MaxWordsPerAudio = WordsPerMinute
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	runSpaces      = regexp.MustCompile(`[ \t]+`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// Formatter prepares assistant replies for voice delivery: long texts are
// condensed to fit the audio budget, then split into roughly one-minute
// chunks.
type Formatter struct {
	wordsPerChunk int
	maxAudios     int
	logger        *slog.Logger
}

func NewFormatter(log *slog.Logger, wordsPerMinute, maxAudios int) *Formatter {
	if log == nil {
		log = slog.Default()
	}
	if wordsPerMinute <= 0 {
		wordsPerMinute = WordsPerMinute
	}
	if maxAudios <= 0 {
		maxAudios = MaxAudios
	}
	return &Formatter{
		wordsPerChunk: wordsPerMinute,
		maxAudios:     maxAudios,
		logger:        log.With(slog.String("service", "speech")),
	}
}

// FormatForAudio returns at most maxAudios chunks of roughly one minute of
// speech each. Empty input yields an empty slice.
func (f *Formatter) FormatForAudio(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	cleaned := excessNewlines.ReplaceAllString(text, "\n\n")
	cleaned = runSpaces.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	words := whitespace.Split(cleaned, -1)
	maxTotal := f.maxAudios * f.wordsPerChunk
	if len(words) > maxTotal {
		f.logger.Info("condensing long reply for audio", "words", len(words), "budget", maxTotal)
		cleaned = summarize(cleaned, maxTotal)
		words = whitespace.Split(cleaned, -1)
	}

	var chunks []string
	var current []string
	for _, word := range words {
		if len(current) >= f.wordsPerChunk && len(chunks) < f.maxAudios-1 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0:0]
		}
		current = append(current, word)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	if len(chunks) > f.maxAudios {
		chunks = chunks[:f.maxAudios]
	}

	f.logger.Debug("reply chunked for audio", "chunks", len(chunks))
	return chunks
}

// summarize condenses text to about maxWords by keeping the opening and
// closing sentences plus a strided sample of the middle, then hard-truncating
// at the word budget.
func summarize(text string, maxWords int) string {
	var sentences []string
	for _, s := range sentenceEnd.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= 3 {
		return text
	}

	// About fifteen words per sentence.
	target := (maxWords + 14) / 15
	if len(sentences) <= target {
		return text
	}

	firstCount := max(target/3, 2)
	lastCount := max(target/3, 2)
	middleCount := target - firstCount - lastCount

	selected := append([]string(nil), sentences[:firstCount]...)
	if middleCount > 0 && len(sentences) > firstCount+lastCount {
		middleStart := firstCount
		middleEnd := len(sentences) - lastCount
		step := max((middleEnd-middleStart)/middleCount, 1)
		for i := middleStart; i < middleEnd; i += step {
			selected = append(selected, sentences[i])
		}
	}
	selected = append(selected, sentences[len(sentences)-lastCount:]...)

	summary := strings.Join(selected, ". ") + "."

	summaryWords := whitespace.Split(summary, -1)
	if len(summaryWords) > maxWords {
		summary = strings.Join(summaryWords[:maxWords], " ") + "..."
	}
	return summary
}
