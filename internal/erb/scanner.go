package erb

import (
	"io"
	"strings"
)

// Scanner splits template source into tokens. It is single pass: Next walks
// the source left to right and returns io.EOF once everything is consumed.
// The scanner tracks whether it is inside a directive itself, so a closing
// marker is only a Close token when a region is open.
type Scanner struct {
	src     string
	pos     int
	line    int
	mode    TrimMode
	percent bool

	tag      TagKind
	tagLine  int
	tagFirst bool

	// lineStart is true before anything on the current physical line has
	// been consumed; lineUsed is true once a token was produced on it.
	lineStart bool
	lineUsed  bool

	queue []Token
}

// NewScanner returns a scanner over src for the given trim mode.
func NewScanner(src string, mode TrimMode, percent bool) *Scanner {
	return &Scanner{
		src:       src,
		line:      1,
		mode:      mode,
		percent:   percent,
		lineStart: true,
	}
}

// Inside reports the kind of region currently open, TagNone when outside.
func (s *Scanner) Inside() TagKind {
	return s.tag
}

// Next returns the next token. At the end of input it returns io.EOF, or an
// *UnterminatedTagError if a directive is still open.
func (s *Scanner) Next() (Token, error) {
	for len(s.queue) == 0 {
		if s.pos >= len(s.src) {
			if s.tag != TagNone {
				return Token{}, &UnterminatedTagError{Kind: s.tag, Line: s.tagLine}
			}
			return Token{}, io.EOF
		}
		if s.tag == TagNone {
			s.scanOutside()
		} else {
			s.scanInside()
		}
	}

	tok := s.queue[0]
	s.queue = s.queue[1:]
	return tok, nil
}

// Tokens drains the scanner.
func (s *Scanner) Tokens() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}

func (s *Scanner) scanOutside() {
	if s.lineStart {
		if s.percent && s.scanPercent() {
			return
		}
		if s.mode == TrimExplicit && s.scanExplicitOpen() {
			return
		}
	}

	rest := s.src[s.pos:]
	i, delim := s.findOutside(rest)
	if i > 0 {
		s.emit(TokenLiteral, rest[:i])
	}
	s.pos += i + len(delim)

	switch delim {
	case "":
	case "\n":
		s.emit(TokenLineBreak, "\n")
		s.newLine()
	case "<%%":
		s.emit(TokenEscapedOpen, "<%")
	case "%%>":
		s.emit(TokenEscapedClose, "%>")
	case "<%=":
		s.open(TokenOpenOutput, delim)
	case "<%#":
		s.open(TokenOpenComment, delim)
	default:
		s.open(TokenOpenCode, "<%")
	}
}

func (s *Scanner) findOutside(rest string) (int, string) {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\n':
			return i, "\n"
		case '<':
			tail := rest[i:]
			if !strings.HasPrefix(tail, "<%") {
				continue
			}
			switch {
			case strings.HasPrefix(tail, "<%%"):
				return i, "<%%"
			case strings.HasPrefix(tail, "<%="):
				return i, "<%="
			case strings.HasPrefix(tail, "<%#"):
				return i, "<%#"
			case s.mode == TrimExplicit && strings.HasPrefix(tail, "<%-"):
				return i, "<%-"
			default:
				return i, "<%"
			}
		case '%':
			if strings.HasPrefix(rest[i:], "%%>") {
				return i, "%%>"
			}
		}
	}
	return len(rest), ""
}

// scanPercent handles a line starting with % in percent mode.
func (s *Scanner) scanPercent() bool {
	rest := s.src[s.pos:]
	if strings.HasPrefix(rest, "%%") {
		s.pos += 2
		s.emit(TokenLiteral, "%")
		return true
	}
	if !strings.HasPrefix(rest, "%") {
		return false
	}

	end := strings.IndexByte(rest, '\n')
	text := rest[1:]
	if end >= 0 {
		text = rest[1:end]
		s.pos += end + 1
	} else {
		s.pos = len(s.src)
	}

	s.queue = append(s.queue, Token{
		Kind: TokenPercentLine,
		Text: strings.TrimSuffix(text, "\r"),
		Line: s.line,
	})
	if end >= 0 {
		s.newLine()
	}
	return true
}

// scanExplicitOpen consumes "[ \t]*<%-" at the start of a line, dropping the
// indentation.
func (s *Scanner) scanExplicitOpen() bool {
	rest := s.src[s.pos:]
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if !strings.HasPrefix(rest[i:], "<%-") {
		return false
	}
	s.pos += i + 3
	s.open(TokenOpenCode, "<%")
	return true
}

func (s *Scanner) scanInside() {
	rest := s.src[s.pos:]
	i, delim := s.findInside(rest)
	if i > 0 {
		s.emit(TokenLiteral, rest[:i])
	}
	s.pos += i + len(delim)

	switch delim {
	case "":
	case "\n":
		s.emit(TokenLiteral, "\n")
		s.newLine()
	case "%%>":
		s.emit(TokenEscapedClose, "%>")
	default:
		s.close(delim == "-%>")
	}
}

func (s *Scanner) findInside(rest string) (int, string) {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\n':
			return i, "\n"
		case '%':
			if strings.HasPrefix(rest[i:], "%%>") {
				return i, "%%>"
			}
			if strings.HasPrefix(rest[i:], "%>") {
				return i, "%>"
			}
		case '-':
			if s.mode == TrimExplicit && strings.HasPrefix(rest[i:], "-%>") {
				return i, "-%>"
			}
		}
	}
	return len(rest), ""
}

func (s *Scanner) open(kind TokenKind, text string) {
	s.tagFirst = !s.lineUsed
	s.tag = kind.tag()
	s.tagLine = s.line
	s.emit(kind, text)
}

// close ends the open region and applies the trim policy to a newline that
// directly follows the closing marker.
func (s *Scanner) close(explicit bool) {
	first := s.tagFirst
	s.tag = TagNone
	s.emit(TokenClose, "%>")

	if s.pos >= len(s.src) || s.src[s.pos] != '\n' {
		return
	}

	trim := false
	switch {
	case explicit:
		trim = true
	case s.mode == TrimAfterClose:
		trim = true
	case s.mode == TrimSymmetric:
		trim = first
	}
	if !trim {
		return
	}

	s.pos++
	s.emit(TokenForcedBreak, "")
	s.newLine()
}

func (s *Scanner) emit(kind TokenKind, text string) {
	s.queue = append(s.queue, Token{Kind: kind, Text: text, Line: s.line})
	s.lineStart = false
	s.lineUsed = true
}

func (s *Scanner) newLine() {
	s.line++
	s.lineStart = true
	s.lineUsed = false
}
