package ref

import (
	"fmt"
	"strings"

	"github.com/pollyan/intent-test-tools-sub001/pkg/types"
)

// Accessor is one step of a property path: either an object key or an
// array index, never both.
type Accessor struct {
	Key     string
	Index   int
	IsIndex bool
}

// String renders the accessor in source form (".key" or "[3]").
func (a Accessor) String() string {
	if a.IsIndex {
		return fmt.Sprintf("[%d]", a.Index)
	}
	return "." + a.Key
}

// PropertyPath is the ordered accessor sequence inside a reference,
// excluding the root identifier.
type PropertyPath []Accessor

// String renders the path in source form.
func (p PropertyPath) String() string {
	var sb strings.Builder
	for _, a := range p {
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Reference is one ${...} occurrence found in text. Start and End delimit
// the full token (including the braces) in the original text. A reference
// with malformed content carries Err and a nil path; sibling references in
// the same text are unaffected.
type Reference struct {
	Raw   string // full token, e.g. "${product_info.price}"
	Start int
	End   int
	Root  string
	Path  PropertyPath
	Err   *types.ReferenceError
}

// parser is a recursive descent parser for the path grammar:
//
//	path     = identifier accessor*
//	accessor = '.' identifier | '[' digits ']'
type parser struct {
	tokens []Token
	pos    int
}

// ParsePath parses the text between the braces of a reference into a root
// identifier and a property path. Pure; never consults any store.
func ParsePath(input string) (string, PropertyPath, error) {
	if input == "" {
		return "", nil, fmt.Errorf("empty reference")
	}

	lexer := NewLexer(input)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return "", nil, err
	}

	p := &parser{tokens: tokens}

	rootTok, err := p.expect(TokenIdent)
	if err != nil {
		return "", nil, fmt.Errorf("reference must start with an identifier: %w", err)
	}

	var path PropertyPath
	for {
		switch p.current().Type {
		case TokenDot:
			p.advance()
			name, err := p.expect(TokenIdent)
			if err != nil {
				return "", nil, fmt.Errorf("expected property name after '.': %w", err)
			}
			path = append(path, Accessor{Key: name.Value})
		case TokenLBracket:
			p.advance()
			idx, err := p.expect(TokenInt)
			if err != nil {
				return "", nil, fmt.Errorf("expected array index after '[': %w", err)
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return "", nil, fmt.Errorf("expected ']': %w", err)
			}
			path = append(path, Accessor{Index: idx.IntVal, IsIndex: true})
		case TokenEOF:
			return rootTok.Value, path, nil
		default:
			tok := p.current()
			return "", nil, fmt.Errorf("unexpected token %s (%q) at position %d", tok.Type, tok.Value, tok.Pos)
		}
	}
}

// FindReferences scans text for ${...} tokens left to right and parses
// each one. A '$' not followed by '{' is literal text. Malformed content
// inside a token is reported on that Reference only.
func FindReferences(text string) []Reference {
	var refs []Reference
	i := 0
	for i < len(text) {
		idx := strings.Index(text[i:], "${")
		if idx == -1 {
			break
		}
		start := i + idx

		end := strings.IndexByte(text[start+2:], '}')
		if end == -1 {
			// Unterminated reference: report the rest of the text as one
			// malformed token and stop scanning.
			raw := text[start:]
			refs = append(refs, Reference{
				Raw:   raw,
				Start: start,
				End:   len(text),
				Err:   types.NewSyntaxError(raw, "unterminated reference: missing '}'"),
			})
			break
		}

		inner := text[start+2 : start+2+end]
		raw := text[start : start+2+end+1]
		r := Reference{Raw: raw, Start: start, End: start + len(raw)}

		root, path, err := ParsePath(inner)
		if err != nil {
			r.Err = types.NewSyntaxError(raw, err.Error())
		} else {
			r.Root = root
			r.Path = path
		}
		refs = append(refs, r)
		i = r.End
	}
	return refs
}

// current returns the current token.
func (p *parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it.
func (p *parser) advance() Token {
	tok := p.current()
	p.pos++
	return tok
}

// expect consumes a token of the expected type or returns an error.
func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, fmt.Errorf("expected %s, got %s at position %d", tt, tok.Type, tok.Pos)
	}
	p.advance()
	return tok, nil
}
