package chunker

import "regexp"

// Section marker patterns, tried in precedence order. Each marker keeps its
// heading attached to the text that follows it.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Article \d+[.:]\s*`),
	regexp.MustCompile(`Section \d+[.:]\s*`),
	regexp.MustCompile(`Chapter \d+[.:]\s*`),
}

// Minimum number of usable sections a pattern must produce before the split
// is trusted over the word-window baseline.
const minSections = 3

// LegalSection is the best-effort strategy: it splits on legal section
// markers (Article/Section/Chapter N) and falls back to the embedded
// word-window baseline when a document does not carry enough of them.
// Section splitting is an enhancement, never a correctness requirement.
type LegalSection struct {
	Fallback WordWindow
	// Sections shorter than this carry no signal and do not count toward
	// the minSections threshold.
	MinSectionChars int
}

// Split tries each marker pattern in precedence order and returns the first
// split that yields at least minSections substantial sections; otherwise it
// word-windows the text.
func (s LegalSection) Split(text string) ([]string, error) {
	// Validate the fallback configuration up front so a bad config fails
	// the same way regardless of which path a document takes.
	if s.Fallback.ChunkSize <= 0 || s.Fallback.Overlap < 0 || s.Fallback.Overlap >= s.Fallback.ChunkSize {
		return nil, ErrConfiguration
	}

	minChars := s.MinSectionChars
	if minChars <= 0 {
		minChars = 100
	}

	for _, pattern := range sectionPatterns {
		locs := pattern.FindAllStringIndex(text, -1)
		if len(locs) < minSections {
			continue
		}

		var sections []string
		prev := 0
		for _, loc := range locs {
			if loc[0] > prev {
				if seg := text[prev:loc[0]]; len(seg) > minChars {
					sections = append(sections, seg)
				}
			}
			prev = loc[0] // keep the marker with its section
		}
		if seg := text[prev:]; len(seg) > minChars {
			sections = append(sections, seg)
		}

		if len(sections) >= minSections {
			return sections, nil
		}
	}

	return s.Fallback.Split(text)
}
