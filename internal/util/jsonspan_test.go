package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONSpan(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		open   byte
		want   string
		wantOK bool
	}{
		{name: "bare array", in: `[1,2,3]`, open: '[', want: `[1,2,3]`, wantOK: true},
		{name: "prose around object", in: "Sure! Here it is: {\"a\": 1} hope it helps", open: '{', want: `{"a": 1}`, wantOK: true},
		{name: "markdown fence", in: "```json\n[{\"q\": \"x\"}]\n```", open: '[', want: `[{"q": "x"}]`, wantOK: true},
		{name: "nested", in: `x {"a": {"b": [1]}} y {"c": 2}`, open: '{', want: `{"a": {"b": [1]}}`, wantOK: true},
		{name: "brackets inside strings", in: `[{"prompt": "what is a[0]?"}]`, open: '[', want: `[{"prompt": "what is a[0]?"}]`, wantOK: true},
		{name: "escaped quote in string", in: `{"a": "say \"}\" now"}`, open: '{', want: `{"a": "say \"}\" now"}`, wantOK: true},
		{name: "unbalanced", in: `[1, 2`, open: '[', wantOK: false},
		{name: "absent", in: `no json here`, open: '{', wantOK: false},
		{name: "unsupported opener", in: `(1)`, open: '(', wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONSpan(tt.in, tt.open)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
