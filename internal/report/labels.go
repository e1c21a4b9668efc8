package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// anonymousExampleMarker opens the auto-generated description RSpec gives an
// example written without one, e.g. `it { is_expected.to eq(4) }`.
const anonymousExampleMarker = "example at "

// DeriveLabel derives the display label for a result. The context-chain
// boilerplate that restates the file name is stripped from the full
// description; anonymous examples get a numbered label so identical
// descriptions within one context stay distinguishable.
func DeriveLabel(res TestResult, location []int) string {
	if strings.HasPrefix(res.Description, anonymousExampleMarker) && len(location) > 0 {
		return fmt.Sprintf("%stest #%d", res.FullDescription, location[len(location)-1])
	}

	label := res.FullDescription
	prefix := describedClassName(res.FilePath)
	if prefix != "" && strings.HasPrefix(label, prefix) {
		label = strings.TrimPrefix(label, prefix)
		label = strings.TrimPrefix(label, " ")
	}

	return label
}

// describedClassName turns a test file's base name into the constant name
// its top-level describe block conventionally uses: "square_spec.rb" ->
// "Square", "test_helper_test.rb" -> "TestHelper". A name still containing a
// path separator is returned unchanged.
func describedClassName(filePath string) string {
	base := filepath.Base(filePath)
	for _, suffix := range []string{"_spec.rb", "_test.rb", ".rb"} {
		if strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}

	if strings.ContainsAny(base, `/\`) {
		return base
	}

	parts := strings.Split(base, "_")
	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
