package services

import (
	"testing"
)

func TestNormalizeChatID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "phone number without country code",
			input:    "01012345678",
			expected: "821012345678@c.us",
		},
		{
			name:     "phone number with country code",
			input:    "821012345678",
			expected: "821012345678@c.us",
		},
		{
			name:     "group id",
			input:    "120363407813232111@g.us",
			expected: "120363407813232111@g.us",
		},
		{
			name:     "phone number without country code, with suffix",
			input:    "01012345678@c.us",
			expected: "821012345678@c.us",
		},
		{
			name:     "phone number with country code, with suffix",
			input:    "821012345678@c.us",
			expected: "821012345678@c.us",
		},
		{
			name:     "surrounding whitespace",
			input:    " 01012345678 ",
			expected: "821012345678@c.us",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeChatID(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeChatID(%q) = %q; want %q", tt.input, result, tt.expected)
			}
		})
	}
}
