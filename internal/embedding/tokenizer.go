package embedding

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const maxWordPieceChars = 100

// WordPieceTokenizer is the uncased BERT tokenizer used by all-MiniLM-L6-v2: text is
// cleaned, lowercased, stripped of accents and split on whitespace and punctuation, then
// each word is broken into the longest vocabulary pieces ("##" marks a continuation).
type WordPieceTokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
	pad   int64
}

// LoadWordPieceTokenizer reads a vocab.txt (one token per line, ID = line number).
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	t, err := NewWordPieceTokenizer(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// NewWordPieceTokenizer builds a tokenizer from vocab lines read from r.
func NewWordPieceTokenizer(r io.Reader) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}

	t := &WordPieceTokenizer{vocab: vocab}
	for _, sp := range []struct {
		tok string
		dst *int64
	}{{"[CLS]", &t.cls}, {"[SEP]", &t.sep}, {"[UNK]", &t.unk}, {"[PAD]", &t.pad}} {
		v, ok := vocab[sp.tok]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", sp.tok)
		}
		*sp.dst = v
	}
	return t, nil
}

// Tokenize returns [CLS] pieces... [SEP] padded with [PAD] to maxTokens. Pieces that do not
// fit are dropped.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = t.cls
	attentionMask[0] = 1
	pos := 1
	for _, id := range t.pieces(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = t.sep
	attentionMask[pos] = 1
	for i := pos + 1; i < maxTokens; i++ {
		inputIDs[i] = t.pad
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

func (t *WordPieceTokenizer) pieces(text string) []int64 {
	var ids []int64
	for _, word := range basicTokens(text) {
		ids = t.appendWordPieces(ids, word)
	}
	return ids
}

// appendWordPieces splits word greedily, longest prefix first. A word with any
// unmatched remainder becomes a single [UNK].
func (t *WordPieceTokenizer) appendWordPieces(ids []int64, word string) []int64 {
	chars := []rune(word)
	if len(chars) > maxWordPieceChars {
		return append(ids, t.unk)
	}
	start := len(ids)
	for begin := 0; begin < len(chars); {
		end := len(chars)
		found := false
		for ; end > begin; end-- {
			sub := string(chars[begin:end])
			if begin > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				ids = append(ids, id)
				found = true
				break
			}
		}
		if !found {
			return append(ids[:start], t.unk)
		}
		begin = end
	}
	return ids
}

// basicTokens lowercases, strips accents and splits text into words and single
// punctuation marks. CJK ideographs become words of their own.
func basicTokens(text string) []string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar:
		case isWhitespace(r):
			b.WriteByte(' ')
		case unicode.IsControl(r):
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	lowered := strings.ToLower(b.String())
	// Chains are stateful, so each call gets its own.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if s, _, err := transform.String(stripAccents, lowered); err == nil {
		lowered = s
	}

	var out []string
	for _, w := range SplitWords(lowered) {
		start := 0
		for i, r := range w {
			if !isPunctuation(r) {
				continue
			}
			if start < i {
				out = append(out, w[start:i])
			}
			out = append(out, string(r))
			start = i + utf8.RuneLen(r)
		}
		if start < len(w) {
			out = append(out, w[start:])
		}
	}
	return out
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

// isPunctuation treats every non-alphanumeric ASCII symbol as punctuation, as BERT does.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	var words []string
	start := -1
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	var h uint
	for _, c := range s {
		h = 31*h + uint(c)
	}
	return int(h & math.MaxInt)
}
