package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSources(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"all", nil},
		{"TechCrunch, arXiv AI ,", []string{"TechCrunch", "arXiv AI"}},
		{"KDnuggets,ALL", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSources(tt.raw), tt.raw)
	}
}
