// Package ref implements the ${...} reference grammar: scanning references
// out of arbitrary text and parsing each enclosed path into a root
// identifier plus an ordered list of property/index accessors.
package ref

// TokenType represents the type of a lexical token inside a reference path.
type TokenType int

const (
	TokenIdent    TokenType = iota // identifier ([A-Za-z_][A-Za-z0-9_]*)
	TokenDot                       // .
	TokenLBracket                  // [
	TokenRBracket                  // ]
	TokenInt                       // non-negative integer literal
	TokenEOF                       // end of path
)

// Token represents a single lexical token.
type Token struct {
	Type   TokenType
	Value  string // raw string value
	IntVal int    // parsed index (for TokenInt)
	Pos    int    // byte position in the path text
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenIdent:
		return "IDENT"
	case TokenDot:
		return "DOT"
	case TokenLBracket:
		return "LBRACKET"
	case TokenRBracket:
		return "RBRACKET"
	case TokenInt:
		return "INT"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}
