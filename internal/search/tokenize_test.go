package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty", "", []string{}},
		{"lowercases and splits punctuation", "Dragon,Koi-fish!", []string{"dragon", "koi", "fish"}},
		{"drops stop words", "I want a dragon tattoo on my arm", []string{"dragon", "arm"}},
		{"dedupes in order", "dragon Dragon DRAGON koi", []string{"dragon", "koi"}},
		{"drops single characters", "a b c rose", []string{"rose"}},
		{"keeps digits", "1920s pinup", []string{"1920s", "pinup"}},
		{"unicode letters", "Ñandú flor", []string{"ñandú", "flor"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.query))
		})
	}
}

func TestMergeKeywords(t *testing.T) {
	got := mergeKeywords([]string{" Dragon ", "", "fire"}, []string{"dragon", "koi"})
	assert.Equal(t, []string{"dragon", "fire", "koi"}, got)

	assert.Equal(t, []string{}, mergeKeywords(nil, nil))
}
