package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveLabel(t *testing.T) {
	tests := []struct {
		name     string
		res      TestResult
		location []int
		want     string
	}{
		{
			"strips described class prefix",
			TestResult{
				Description:     "finds the square of 2",
				FullDescription: "Square finds the square of 2",
				FilePath:        "./spec/square_spec.rb",
			},
			[]int{1, 1},
			"finds the square of 2",
		},
		{
			"strips multi-word underscore name",
			TestResult{
				Description:     "parses input",
				FullDescription: "TestHelper parses input",
				FilePath:        "./spec/test_helper_spec.rb",
			},
			[]int{1},
			"parses input",
		},
		{
			"keeps full description when prefix differs",
			TestResult{
				Description:     "does things",
				FullDescription: "SomethingElse does things",
				FilePath:        "./spec/square_spec.rb",
			},
			[]int{1},
			"SomethingElse does things",
		},
		{
			"minitest suffix",
			TestResult{
				Description:     "computes absolute value",
				FullDescription: "Abs computes absolute value",
				FilePath:        "./test/abs_test.rb",
			},
			[]int{4},
			"computes absolute value",
		},
		{
			"anonymous example gets numbered label",
			TestResult{
				Description:     "example at ./spec/square_spec.rb:9",
				FullDescription: "Square ",
				FilePath:        "./spec/square_spec.rb",
			},
			[]int{1, 3},
			"Square test #3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveLabel(tt.res, tt.location))
		})
	}
}

func TestDescribedClassName(t *testing.T) {
	tests := []struct {
		filePath string
		want     string
	}{
		{"./spec/square_spec.rb", "Square"},
		{"./test/abs_test.rb", "Abs"},
		{"./spec/test_unit_spec.rb", "TestUnit"},
		{"./spec/helpers/string_utils_spec.rb", "StringUtils"},
		{"plain.rb", "Plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, describedClassName(tt.filePath), "for %s", tt.filePath)
	}
}
