package phoneutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"+7 (999) 123-45-67", "79991234567"},
		{"8 999 123 45 67", "89991234567"},
		{"no digits", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Digits(tt.in), "Digits(%q)", tt.in)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"same digits different punctuation", "+7 (999) 123-45-67", "7-999-123-45-67", true},
		{"russian trunk prefix folded", "+7 (999) 123-45-67", "89991234567", true},
		{"trunk fold both ways", "89991234567", "+79991234567", true},
		{"different subscriber", "+7 (999) 123-45-67", "89991230000", false},
		{"short numbers compared verbatim", "123", "123", true},
		{"short numbers no trunk folding", "81234", "71234", false},
		{"empty never matches", "", "", false},
		{"letters only never match", "abc", "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFoldName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ivan petrov", FoldName("  Ivan   PETROV "))
	assert.Equal(t, FoldName("Ivan Petrov"), FoldName("ivan petrov"))
	assert.Equal(t, "", FoldName("   "))
}
