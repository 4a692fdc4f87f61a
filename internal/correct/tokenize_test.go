package correct_test

import (
	"slices"
	"testing"

	"github.com/otoscribe/otoscribe/internal/correct"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: " \t\n",
			want: nil,
		},
		{
			name: "plain words split on spaces",
			text: "hello world",
			want: []string{"hello", "world"},
		},
		{
			name: "japanese delimiters become tokens",
			text: "こんにちは、世界。",
			want: []string{"こんにちは", "、", "世界", "。"},
		},
		{
			name: "mixed words and delimiters",
			text: "えーと 今日は、晴れ！",
			want: []string{"えーと", "今日は", "、", "晴れ", "！"},
		},
		{
			name: "fullwidth stop and comma",
			text: "12時．開始，終了",
			want: []string{"12時", "．", "開始", "，", "終了"},
		},
		{
			name: "newlines and tabs act as whitespace",
			text: "a\nb\tc",
			want: []string{"a", "b", "c"},
		},
		{
			name: "consecutive delimiters",
			text: "はい。。",
			want: []string{"はい", "。", "。"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := correct.Tokenize(tc.text)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
