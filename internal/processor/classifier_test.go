package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affirmation_fetcher/internal/config"
	"affirmation_fetcher/internal/domain"
)

func defaultClassifier() *Classifier {
	cfg := config.ClassifierConfig{}
	cfg.SetDefaults()
	return NewClassifier(cfg)
}

func TestClassify_FaithScenario(t *testing.T) {
	c := defaultClassifier()

	content := c.Classify("I am blessed and highly favored by God. His love surrounds me.")

	assert.True(t, content.Eligible)
	assert.False(t, content.Degraded)
	assert.Equal(t, domain.CategoryFaith, content.Category)
	assert.Contains(t, content.Tags, "blessed")
	assert.Empty(t, content.Reference)
}

func TestClassify_DenyListSpam(t *testing.T) {
	c := defaultClassifier()

	content := c.Classify("Check this out http://spam.example subscribe now!!")

	assert.False(t, content.Eligible)
}

func TestClassify_ReferenceExtraction(t *testing.T) {
	c := defaultClassifier()

	content := c.Classify("John 3:16 says God so loved the world")

	assert.True(t, content.Eligible)
	assert.Equal(t, domain.CategoryFaith, content.Category)
	assert.Equal(t, "John 3:16", content.Reference)
}

func TestClassify_Totality(t *testing.T) {
	c := defaultClassifier()

	for _, input := range []string{"", "   ", "\n\t", "xyzzy qwerty plugh"} {
		assert.NotPanics(t, func() {
			content := c.Classify(input)
			assert.True(t, content.Category.Valid())
		}, "input %q", input)
	}
}

func TestClassify_EmptyInputDegraded(t *testing.T) {
	c := defaultClassifier()

	content := c.Classify("")

	assert.False(t, content.Eligible)
	assert.True(t, content.Degraded)
	assert.Equal(t, domain.CategoryFaith, content.Category)
	assert.Empty(t, content.Tags)
	assert.Empty(t, content.Reference)
}

func TestClassify_ShortTextIneligible(t *testing.T) {
	c := defaultClassifier()

	content := c.Classify("hi")

	assert.False(t, content.Eligible)
	assert.False(t, content.Degraded)
}

func TestClassify_NoKeywordsDefaultsToFaith(t *testing.T) {
	c := defaultClassifier()

	content := c.Classify("a perfectly ordinary sentence about nothing in particular")

	assert.True(t, content.Eligible)
	assert.Equal(t, domain.CategoryFaith, content.Category)
}

func TestClassify_CategoryScoring(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		name string
		text string
		want domain.Category
	}{
		{
			name: "strength keywords dominate",
			text: "Be strong and full of courage; you will overcome and conquer",
			want: domain.CategoryStrength,
		},
		{
			name: "gratitude keywords dominate",
			text: "I am so thankful and grateful for every gift",
			want: domain.CategoryGratitude,
		},
		{
			name: "purpose keywords dominate",
			text: "Your destiny and calling shape the journey ahead",
			want: domain.CategoryPurpose,
		},
		{
			name: "wisdom keywords dominate",
			text: "Seek wisdom and insight; learn and understand deeply",
			want: domain.CategoryWisdom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text).Category)
		})
	}
}

func TestClassify_TieBreaksToDefault(t *testing.T) {
	cfg := config.ClassifierConfig{
		DefaultCategory: "Wisdom",
		Categories: map[string][]string{
			"Strength":  {"alpha"},
			"Gratitude": {"beta"},
		},
		DenyList: []string{"http"},
	}
	cfg.SetDefaults()
	c := NewClassifier(cfg)

	// alpha and beta each score once; the tie falls back to the default.
	content := c.Classify("alpha beta together")
	assert.Equal(t, domain.CategoryWisdom, content.Category)
}

func TestClassify_OverrideRuleWins(t *testing.T) {
	cfg := config.ClassifierConfig{
		Categories: map[string][]string{
			"Strength": {"strong", "mighty", "power"},
		},
		Overrides: []config.OverrideRule{
			{Name: "scripture", Keywords: []string{"amen"}, Category: "Faith"},
		},
	}
	cfg.SetDefaults()
	c := NewClassifier(cfg)

	// Strength scores three times, but the override rule forces Faith.
	content := c.Classify("Strong and mighty is his power, amen")
	assert.Equal(t, domain.CategoryFaith, content.Category)
}

func TestClassify_TagsPreserveVocabularyOrder(t *testing.T) {
	cfg := config.ClassifierConfig{
		Tags: []string{"faith", "hope", "love", "peace"},
	}
	cfg.SetDefaults()
	c := NewClassifier(cfg)

	content := c.Classify("love and peace flow from hope and faith")

	assert.Equal(t, []string{"faith", "hope", "love", "peace"}, content.Tags)
}

func TestClassify_TagsCapped(t *testing.T) {
	cfg := config.ClassifierConfig{
		MaxTags: 2,
		Tags:    []string{"faith", "hope", "love", "peace"},
	}
	cfg.SetDefaults()
	c := NewClassifier(cfg)

	content := c.Classify("faith hope love peace all at once")

	require.Len(t, content.Tags, 2)
	assert.Equal(t, []string{"faith", "hope"}, content.Tags)
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "standard book chapter verse",
			text: "Remember John 3:16 always",
			want: "John 3:16",
		},
		{
			name: "numbered book with range",
			text: "Love is patient, 1 Corinthians 13:4-7",
			want: "1 Corinthians 13:4-7",
		},
		{
			name: "parenthesized reference",
			text: "The Lord is my shepherd (Psalm 23:1)",
			want: "Psalm 23:1",
		},
		{
			name: "no reference",
			text: "Walk by faith and not by sight",
			want: "",
		},
		{
			name: "colon required",
			text: "Meet me at noon (room 12)",
			want: "",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReference(tt.text))
		})
	}
}
