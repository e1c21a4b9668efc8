package testid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		rootPrefix string
		want       string
	}{
		{"plain id", "square_spec.rb[1:1]", "", "square_spec.rb[1:1]"},
		{"leading dot slash", "./spec/square_spec.rb", "", "spec/square_spec.rb"},
		{"root prefix", "./spec/square_spec.rb", "./spec", "square_spec.rb"},
		{"root prefix with trailing sep", "./spec/square_spec.rb", "./spec/", "square_spec.rb"},
		{"trailing separator", "spec/models/", "spec", "models"},
		{"already normalized", "square_spec.rb", "./spec", "square_spec.rb"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.rootPrefix))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	ids := []string{
		"./spec/square_spec.rb[1:2:3]",
		"spec/square_spec.rb",
		"abs_test.rb[4]",
		"models/user_spec.rb[1:1]",
	}

	for _, raw := range ids {
		once := Normalize(raw, "./spec")
		assert.Equal(t, once, Normalize(once, "./spec"), "normalize should be idempotent for %q", raw)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		wantSegments []string
		wantLocation []int
	}{
		{"file only", "spec/square_spec.rb", []string{"spec", "square_spec.rb"}, nil},
		{"single location", "abs_test.rb[4]", []string{"abs_test.rb"}, []int{4}},
		{"nested location", "a/b/c_spec.rb[1:2:3]", []string{"a", "b", "c_spec.rb"}, []int{1, 2, 3}},
		{"malformed brackets", "weird_spec.rb[1:x]", []string{"weird_spec.rb[1:x]"}, nil},
		{"unclosed bracket", "weird_spec.rb[1", []string{"weird_spec.rb[1"}, nil},
		{"empty brackets", "weird_spec.rb[]", []string{"weird_spec.rb[]"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := Parse(tt.id)
			assert.Equal(t, tt.wantSegments, parsed.PathSegments)
			assert.Equal(t, tt.wantLocation, parsed.Location)
		})
	}
}

func TestAncestorChain(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want []string
	}{
		{
			"path segments only",
			"a/b/c.rb",
			[]string{"a", "a/b", "a/b/c.rb"},
		},
		{
			"single integer location",
			"abs_test.rb[4]",
			[]string{"abs_test.rb", "abs_test.rb[4]"},
		},
		{
			"triple colon location",
			"contexts_spec.rb[1:1:1]",
			[]string{"contexts_spec.rb", "contexts_spec.rb[1]", "contexts_spec.rb[1:1]", "contexts_spec.rb[1:1:1]"},
		},
		{
			"path and location combined",
			"models/user_spec.rb[2:1]",
			[]string{"models", "models/user_spec.rb", "models/user_spec.rb[2]", "models/user_spec.rb[2:1]"},
		},
		{
			"malformed location treated as path segment",
			"weird_spec.rb[oops]",
			[]string{"weird_spec.rb[oops]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AncestorChain(tt.id))
		})
	}
}

func TestAncestorChainStrictlyIncreasing(t *testing.T) {
	chain := AncestorChain("a/b/contexts_spec.rb[1:2:3]")

	for i := 1; i < len(chain); i++ {
		assert.Greater(t, len(chain[i]), len(chain[i-1]), "chain entries must strictly increase in length")
		prev := chain[i-1]
		assert.Equal(t, prev, chain[i][:len(prev)], "each entry must extend the previous one")
	}
}

func TestCanResolveChildren(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		target    string
		want      bool
	}{
		{"leaf test itself", "spec_a.rb[1:1]", "spec_a.rb[1:1]", false},
		{"file ancestor of a leaf", "spec_a.rb", "spec_a.rb[1:1]", true},
		{"context ancestor of a leaf", "spec_a.rb[1]", "spec_a.rb[1:1]", true},
		{"plain file target", "spec_a.rb", "spec_a.rb", true},
		{"folder", "models", "models/user_spec.rb[1]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanResolveChildren(tt.candidate, tt.target))
		})
	}
}
