// Package corpus 離線建置食譜索引：解析資料集並批次計算向量
package corpus

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseListLiteral 解析資料集中序列化的字串清單，例如 ['a', "b's"]
//
// 只接受由引號字串組成的清單，不會執行任何內容。允許結尾逗號。
func ParseListLiteral(s string) ([]string, error) {
	p := &literalParser{src: s}
	p.skipSpace()
	if !p.consume('[') {
		return nil, p.errorf("expected '['")
	}

	items := []string{}
	for {
		p.skipSpace()
		if p.consume(']') {
			break
		}
		item, err := p.quoted()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			break
		}
		return nil, p.errorf("expected ',' or ']'")
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing data")
	}
	return items, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("list literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *literalParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// quoted 解析單引號或雙引號字串
func (p *literalParser) quoted() (string, error) {
	if p.pos >= len(p.src) {
		return "", p.errorf("unexpected end of input")
	}
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", p.errorf("expected quoted string")
	}
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errorf("unterminated string")
}

// escape 處理反斜線跳脫；未知的跳脫保留原樣
func (p *literalParser) escape(b *strings.Builder) error {
	p.pos++
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++

	switch c {
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'x':
		return p.hexRune(b, 2)
	case 'u':
		return p.hexRune(b, 4)
	default:
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *literalParser) hexRune(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated hex escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits
	b.WriteRune(rune(v))
	return nil
}
