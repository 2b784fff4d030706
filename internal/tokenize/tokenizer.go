package tokenize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"stickermap/internal/extract"
)

// CandidatePhrase is one normalized, feature-like span of sticker text.
// Block is a back-reference to the producing extraction block, not ownership.
type CandidatePhrase struct {
	Text       string
	TokenCount int
	Ordinal    int // document-order position, unique per phrase
	Block      *extract.TextBlock
}

type Config struct {
	// MinPhraseChars drops fragments too short to name a feature. Default 4.
	MinPhraseChars int

	// SectionGating keeps only lines between a feature-section header
	// ("standard equipment", ...) and a non-feature header ("warranty", ...).
	SectionGating bool

	// ExtraStopPatterns extends the built-in boilerplate stoplist. Patterns
	// are matched against the raw lowercased segment, before normalization.
	ExtraStopPatterns []string
}

// Boilerplate that shows up on every sticker and never names a feature:
// prices, VINs, page footers, totals.
var defaultStopPatterns = []string{
	`\$\s*\d`,
	`\bvin\b`,
	`\b[a-hj-npr-z\d]{17}\b`,
	`\bmsrp\b`,
	`\btotal\s+(price|msrp|vehicle)\b`,
	`\bdestination\s+(charge|fee)\b`,
	`^page\s+\d+(\s+of\s+\d+)?$`,
}

var featureSectionHeaders = []string{
	"standard equipment",
	"factory installed options",
	"optional equipment",
	"included equipment",
	"features",
	"equipment",
	"packages",
}

var nonFeatureSectionHeaders = []string{
	"warranty",
	"safety ratings",
	"fuel economy",
	"price",
	"msrp",
	"destination",
	"total",
}

// segments split on bullet markers and column gaps (3+ spaces); sticker
// feature lists are delimited, not prose.
var reSegment = regexp.MustCompile(`[•·▪◦‣|]|\s{3,}`)

type Tokenizer struct {
	minChars int
	gating   bool
	stop     []*regexp.Regexp
	logger   *slog.Logger
}

func NewTokenizer(cfg Config, logger *slog.Logger) (*Tokenizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinPhraseChars <= 0 {
		cfg.MinPhraseChars = 4
	}

	patterns := append([]string{}, defaultStopPatterns...)
	patterns = append(patterns, cfg.ExtraStopPatterns...)
	stop := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile stop pattern %q: %w", p, err)
		}
		stop = append(stop, re)
	}

	return &Tokenizer{
		minChars: cfg.MinPhraseChars,
		gating:   cfg.SectionGating,
		stop:     stop,
		logger:   logger,
	}, nil
}

// Tokenize segments extracted blocks into normalized candidate phrases,
// preserving block order. Duplicate phrases are retained; deduplication by
// canonical feature happens at resolution, not here.
func (t *Tokenizer) Tokenize(blocks []extract.TextBlock) []CandidatePhrase {
	var phrases []CandidatePhrase
	ordinal := 0
	inSection := !t.gating // gating off -> everything is in section

	for i := range blocks {
		block := &blocks[i]
		for _, line := range strings.Split(block.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if t.gating {
				lower := strings.ToLower(line)
				if containsAny(lower, featureSectionHeaders) {
					inSection = true
					continue
				}
				if inSection && containsAny(lower, nonFeatureSectionHeaders) {
					inSection = false
				}
			}
			if !inSection {
				continue
			}

			for _, seg := range reSegment.Split(line, -1) {
				seg = strings.TrimSpace(seg)
				if seg == "" {
					continue
				}
				if t.isStopSegment(seg) {
					continue
				}
				norm := NormalizePhrase(seg)
				if len(norm) < t.minChars || isPurelyNumeric(norm) {
					continue
				}
				phrases = append(phrases, CandidatePhrase{
					Text:       norm,
					TokenCount: len(strings.Fields(norm)),
					Ordinal:    ordinal,
					Block:      block,
				})
				ordinal++
			}
		}
	}

	t.logger.Debug("tokenized blocks", "blocks", len(blocks), "phrases", len(phrases))
	return phrases
}

func (t *Tokenizer) isStopSegment(seg string) bool {
	lower := strings.ToLower(seg)
	for _, re := range t.stop {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isPurelyNumeric(s string) bool {
	seen := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seen = true
		case r == ' ' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return seen
}
