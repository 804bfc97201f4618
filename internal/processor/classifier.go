package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"affirmation_fetcher/internal/config"
	"affirmation_fetcher/internal/domain"
)

// Reference patterns, tried in priority order. The parenthesized form
// comes last so a bare "John 3:16" wins over "(see John 3:16)".
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d? ?[A-Za-z]+ ?\d+:\d+(?:-\d+)?\b`),   // John 3:16, 1 Corinthians 13:4-7
	regexp.MustCompile(`\b[A-Za-z]{2,3}\.? ?\d+:\d+(?:-\d+)?\b`), // Jn 3:16
	regexp.MustCompile(`\(([A-Za-z\d :,-]+)\)`),                  // (John 3:16)
}

type categoryKeywords struct {
	category domain.Category
	keywords []string
}

type overrideRule struct {
	name     string
	keywords []string
	category domain.Category
}

// Classifier assigns category, tags, eligibility and a citation
// reference to normalized text. All policy comes from configuration;
// Classify itself is pure and never fails.
type Classifier struct {
	minLength       int
	denyList        []string
	defaultCategory domain.Category
	categories      []categoryKeywords
	overrides       []overrideRule
	tagVocabulary   []string
	maxTags         int
}

// NewClassifier builds a classifier from policy configuration.
// Keyword tables are matched against the closed category set in
// declaration order, which keeps scoring deterministic; entries for
// unknown categories are ignored.
func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	c := &Classifier{
		minLength:       cfg.MinEligibleLength,
		defaultCategory: domain.Category(cfg.DefaultCategory),
		maxTags:         cfg.MaxTags,
		tagVocabulary:   cfg.Tags,
	}

	if !c.defaultCategory.Valid() {
		c.defaultCategory = domain.CategoryFaith
	}

	for _, entry := range cfg.DenyList {
		c.denyList = append(c.denyList, strings.ToLower(entry))
	}

	for _, cat := range domain.Categories() {
		keywords, ok := cfg.Categories[string(cat)]
		if !ok {
			continue
		}
		lowered := make([]string, len(keywords))
		for i, kw := range keywords {
			lowered[i] = strings.ToLower(kw)
		}
		c.categories = append(c.categories, categoryKeywords{category: cat, keywords: lowered})
	}

	for _, rule := range cfg.Overrides {
		cat := domain.Category(rule.Category)
		if !cat.Valid() {
			continue
		}
		lowered := make([]string, len(rule.Keywords))
		for i, kw := range rule.Keywords {
			lowered[i] = strings.ToLower(kw)
		}
		c.overrides = append(c.overrides, overrideRule{name: rule.Name, keywords: lowered, category: cat})
	}

	return c
}

// Classify never fails. Empty or whitespace-only input comes back
// ineligible with the default category and the Degraded flag set.
func (c *Classifier) Classify(text string) domain.ClassifiedContent {
	content := domain.ClassifiedContent{
		Text:     text,
		Category: c.defaultCategory,
	}

	if strings.TrimSpace(text) == "" {
		content.Degraded = true
		return content
	}

	lower := strings.ToLower(text)

	content.Eligible = c.eligible(text, lower)
	content.Category = c.categorize(lower)
	content.Tags = c.extractTags(lower)
	content.Reference = ExtractReference(text)

	return content
}

// eligible is a permissive gate: accept unless the text is too short
// to mean anything or trips the promotional deny-list.
func (c *Classifier) eligible(text, lower string) bool {
	if utf8.RuneCountInString(text) < c.minLength {
		return false
	}
	for _, entry := range c.denyList {
		if strings.Contains(lower, entry) {
			return false
		}
	}
	return true
}

func (c *Classifier) categorize(lower string) domain.Category {
	// Named override rules take precedence over keyword scores.
	for _, rule := range c.overrides {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}

	best := c.defaultCategory
	bestScore := 0
	tied := false

	for _, entry := range c.categories {
		score := 0
		for _, kw := range entry.keywords {
			score += strings.Count(lower, kw)
		}
		switch {
		case score > bestScore:
			best = entry.category
			bestScore = score
			tied = false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	// Ties and all-zero scores both fall back to the declared default.
	if bestScore == 0 || tied {
		return c.defaultCategory
	}
	return best
}

func (c *Classifier) extractTags(lower string) []string {
	var tags []string
	for _, tag := range c.tagVocabulary {
		if strings.Contains(lower, strings.ToLower(tag)) {
			tags = append(tags, tag)
			if len(tags) == c.maxTags {
				break
			}
		}
	}
	return tags
}

// ExtractReference finds a citation-like substring ("John 3:16",
// "1 Cor 13:4-7", "(Psalm 23:1)"). Patterns are tried in a fixed
// priority order; the first match that still contains a colon after
// stripping parentheses wins. Returns "" when nothing matches.
func ExtractReference(text string) string {
	for _, pattern := range referencePatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}
		ref := strings.TrimSpace(strings.Trim(match, "()"))
		if strings.Contains(ref, ":") {
			return ref
		}
	}
	return ""
}
