package embedding

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var testVocab = strings.Join([]string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", // 0-3
	"the", "un", "##aff", "##able", // 4-7
	"play", "##ing", ",", "cafe", // 8-11
	"lost", "bag", "##gage", "!", // 12-15
}, "\n")

func newTestTokenizer(t *testing.T) *WordPieceTokenizer {
	t.Helper()
	tok, err := NewWordPieceTokenizer(strings.NewReader(testVocab))
	if err != nil {
		t.Fatalf("NewWordPieceTokenizer: %v", err)
	}
	return tok
}

func TestWordPieceTokenizer_Tokenize(t *testing.T) {
	tok := newTestTokenizer(t)

	tests := []struct {
		name      string
		text      string
		maxTokens int
		want      []int64
	}{
		{"pieces punctuation case accents", "UnAffable, PLAYING café!", 12, []int64{2, 5, 6, 7, 10, 8, 9, 11, 15, 3, 0, 0}},
		{"partial match is unknown", "unx lost", 6, []int64{2, 1, 12, 3, 0, 0}},
		{"truncated keeps sep", "lost baggage the", 4, []int64{2, 12, 13, 3}},
		{"cjk chars split", "中文", 4, []int64{2, 1, 1, 3}},
		{"no-break space", "lost\u00a0bag", 4, []int64{2, 12, 13, 3}},
		{"empty", "", 3, []int64{2, 3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, attn, types := tok.Tokenize(tt.text, tt.maxTokens)
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
			for i, id := range ids {
				want := int64(1)
				if id == 0 {
					want = 0
				}
				if attn[i] != want {
					t.Errorf("attention[%d] = %d, want %d", i, attn[i], want)
				}
				if types[i] != 0 {
					t.Errorf("token_type[%d] = %d, want 0", i, types[i])
				}
			}
		})
	}
}

func TestNewWordPieceTokenizer_missingSpecialToken(t *testing.T) {
	if _, err := NewWordPieceTokenizer(strings.NewReader("[PAD]\n[UNK]\nthe\n")); err == nil {
		t.Error("expected error for vocab without [CLS]/[SEP]")
	}
}

func TestLoadWordPieceTokenizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	crlf := strings.ReplaceAll(testVocab, "\n", "\r\n")
	if err := os.WriteFile(path, []byte(crlf), 0600); err != nil {
		t.Fatal(err)
	}
	tok, err := LoadWordPieceTokenizer(path)
	if err != nil {
		t.Fatal(err)
	}
	ids, _, _ := tok.Tokenize("lost", 3)
	if !reflect.DeepEqual(ids, []int64{2, 12, 3}) {
		t.Errorf("ids = %v", ids)
	}

	if _, err := LoadWordPieceTokenizer(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing vocab")
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"  a  b  c  ", []string{"a", "b", "c"}},
		{"lost\r\nbag", []string{"lost", "bag"}},
		{"café\tnaïve\r日本 語", []string{"café", "naïve", "日本", "語"}},
		{"", nil},
		{" \r\n\t", nil},
	}
	for _, tt := range tests {
		if got := SplitWords(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitWords(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
	for _, s := range []string{"", "abc", strings.Repeat("overflow ", 64), "日本語のテキスト"} {
		if h := HashString(s); h < 0 {
			t.Errorf("HashString(%q) = %d, want non-negative", s, h)
		}
	}
}
