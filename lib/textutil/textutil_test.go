package textutil

import "testing"

func TestCleanName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{" احمد علي ", "احمد علي"},
		{"  double  spaced  ", "double spaced"},
		{"", ""},
		{" ", ""},
		{"plain", "plain"},
	}

	for _, test := range testCases {
		got := CleanName(test.input)
		if got != test.expected {
			t.Fatalf("CleanName(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"MATH101", "MATH101"},
		{"a/b\\c:d", "abcd"},
		{"code 1-2_3", "code 1-2_3"},
		{"كود", ""},
	}

	for _, test := range testCases {
		got := SanitizeFilename(test.input)
		if got != test.expected {
			t.Fatalf("SanitizeFilename(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}
