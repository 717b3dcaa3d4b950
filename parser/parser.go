package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/datetime"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/digest"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/known"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/token"
)

// Parser turns a token stream into an ast.Pattern via precedence
// climbing: or -> and -> not -> (quantified group) -> primary. It buffers
// its own two-token lookahead on top of a token.Lexer, which is needed
// once (for the {n} length-spec vs {key:value} map-entries ambiguity
// after a '{').
type Parser struct {
	lex     token.Lexer
	buf     []token.Token
	names   known.Registry
	lastEnd int
}

// New builds a Parser over lex, resolving known-value names through
// names. A nil names registry resolves nothing. Tag names in
// tagged(name, p) are kept as written and resolved at match time.
func New(lex token.Lexer, names known.Registry) *Parser {
	if names == nil {
		names = known.Empty
	}
	return &Parser{lex: lex, names: names}
}

// ParsePartial parses a pattern from the prefix of src, returning the
// pattern and the number of bytes consumed (including trailing
// whitespace, since whitespace is otherwise insignificant). Trailing
// non-whitespace content is left unconsumed rather than erroring.
func ParsePartial(src string, names known.Registry) (ast.Pattern, int, error) {
	p := New(token.NewDefaultLexer(src), names)
	pat, err := p.parseOr()
	if err != nil {
		return ast.Pattern{}, 0, err
	}
	consumed, err := p.finish()
	if err != nil {
		return ast.Pattern{}, 0, err
	}
	return pat, consumed, nil
}

// Parse parses a pattern from all of src, requiring full consumption.
func Parse(src string, names known.Registry) (ast.Pattern, error) {
	pat, consumed, err := ParsePartial(src, names)
	if err != nil {
		return ast.Pattern{}, err
	}
	if consumed != len(src) {
		return ast.Pattern{}, &Error{Kind: ExtraData, Span: token.Span{Start: consumed, End: len(src)}}
	}
	return pat, nil
}

func (p *Parser) finish() (int, error) {
	tok, err := p.peek()
	if err != nil {
		// Trailing content the lexer cannot even tokenize is still just
		// trailing content from ParsePartial's point of view.
		if _, ok := err.(*token.LexError); ok {
			return p.lastEnd, nil
		}
		return 0, err
	}
	if tok.Kind == token.EOF {
		return tok.Span.Start, nil
	}
	return p.lastEnd, nil
}

func (p *Parser) peekAt(n int) (token.Token, error) {
	for len(p.buf) <= n {
		tok, err := p.lex.Next()
		if err != nil {
			return token.Token{}, err
		}
		p.buf = append(p.buf, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	if n >= len(p.buf) {
		return p.buf[len(p.buf)-1], nil // repeated EOF
	}
	return p.buf[n], nil
}

func (p *Parser) peek() (token.Token, error)  { return p.peekAt(0) }
func (p *Parser) peek2() (token.Token, error) { return p.peekAt(1) }

func (p *Parser) next() (token.Token, error) {
	tok, err := p.peekAt(0)
	if err != nil {
		return tok, err
	}
	if len(p.buf) > 0 {
		p.buf = p.buf[1:]
	}
	p.lastEnd = tok.Span.End
	return tok, nil
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Kind != k {
		return tok, newErr(UnexpectedToken, tok.Span, "expected %s, got %s", k, tok.Kind)
	}
	return tok, nil
}

// --- precedence climbing ---

func (p *Parser) parseOr() (ast.Pattern, error) {
	first, err := p.parseAnd()
	if err != nil {
		return ast.Pattern{}, err
	}
	items := []ast.Pattern{first}
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Pattern{}, err
		}
		if tok.Kind != token.Pipe {
			break
		}
		p.next()
		next, err := p.parseAnd()
		if err != nil {
			return ast.Pattern{}, err
		}
		items = append(items, next)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return ast.NewOr(items), nil
}

func (p *Parser) parseAnd() (ast.Pattern, error) {
	first, err := p.parseNot()
	if err != nil {
		return ast.Pattern{}, err
	}
	items := []ast.Pattern{first}
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Pattern{}, err
		}
		if tok.Kind != token.Amp {
			break
		}
		p.next()
		next, err := p.parseNot()
		if err != nil {
			return ast.Pattern{}, err
		}
		items = append(items, next)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return ast.NewAnd(items), nil
}

func (p *Parser) parseNot() (ast.Pattern, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Pattern{}, err
	}
	if tok.Kind == token.Bang {
		bangSpan := tok.Span
		p.next()
		child, err := p.parseNot()
		if err != nil {
			return ast.Pattern{}, err
		}
		if containsCapture(child) {
			return ast.Pattern{}, newErr(CaptureInsideNot, bangSpan, "captures are not permitted inside !")
		}
		if child.Kind == ast.KindAny {
			return ast.None(), nil
		}
		return ast.NewNot(child), nil
	}
	return p.parsePrimaryWithQuantifier()
}

func (p *Parser) parsePrimaryWithQuantifier() (ast.Pattern, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Pattern{}, err
	}
	if tok.Kind == token.LParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return ast.Pattern{}, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.Pattern{}, err
		}
		q, err := p.tryParseQuantifier()
		if err != nil {
			return ast.Pattern{}, err
		}
		return ast.NewRepeat(inner, q), nil
	}
	return p.parseAtom()
}

// tryParseQuantifier parses an optional quantifier (*, +, ?, {n}, {n,m},
// {n,}) with an optional trailing reluctance modifier (? lazy, + possessive).
// Absent a quantifier token, it returns the mandatory {1,1,Greedy} every
// parenthesized group carries.
func (p *Parser) tryParseQuantifier() (ast.Quantifier, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Quantifier{}, err
	}
	switch tok.Kind {
	case token.Star:
		p.next()
		r, err := p.parseReluctance()
		return ast.Quantifier{Min: 0, Max: ast.MaxUnbounded, Reluctance: r}, err
	case token.Plus:
		p.next()
		r, err := p.parseReluctance()
		return ast.Quantifier{Min: 1, Max: ast.MaxUnbounded, Reluctance: r}, err
	case token.Question:
		p.next()
		r, err := p.parseReluctance()
		return ast.Quantifier{Min: 0, Max: 1, Reluctance: r}, err
	case token.LBrace:
		// Only commit to a quantifier if the brace content looks like one
		// ({n} / {n,m} / {n,}); a '{' opening anything else belongs to the
		// surrounding context (e.g. a map pattern in trailing input).
		t1, err := p.peek2()
		if err != nil || t1.Kind != token.Number {
			return ast.Quantifier{Min: 1, Max: 1, Reluctance: ast.Greedy}, nil
		}
		p.next()
		min, max, err := p.parseBraceCount()
		if err != nil {
			return ast.Quantifier{}, err
		}
		r, err := p.parseReluctance()
		if err != nil {
			return ast.Quantifier{}, err
		}
		if max != ast.MaxUnbounded && max < min {
			return ast.Quantifier{}, newErr(InvalidQuantifier, tok.Span, "max %d less than min %d", max, min)
		}
		return ast.Quantifier{Min: min, Max: max, Reluctance: r}, nil
	default:
		return ast.Quantifier{Min: 1, Max: 1, Reluctance: ast.Greedy}, nil
	}
}

func (p *Parser) parseReluctance() (ast.Reluctance, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Greedy, err
	}
	switch tok.Kind {
	case token.Question:
		p.next()
		return ast.Lazy, nil
	case token.Plus:
		p.next()
		return ast.Possessive, nil
	default:
		return ast.Greedy, nil
	}
}

// parseBraceCount parses "NUMBER}" | "NUMBER,}" | "NUMBER,NUMBER}",
// assuming the opening '{' has already been consumed. It is shared by
// quantifier {n,m} and array/map length-spec parsing.
func (p *Parser) parseBraceCount() (uint64, uint64, error) {
	numTok, err := p.expect(token.Number)
	if err != nil {
		return 0, 0, err
	}
	n1, err := parseUint(numTok)
	if err != nil {
		return 0, 0, err
	}
	tok, err := p.peek()
	if err != nil {
		return 0, 0, err
	}
	switch tok.Kind {
	case token.RBrace:
		p.next()
		return n1, n1, nil
	case token.Comma:
		p.next()
		tok2, err := p.peek()
		if err != nil {
			return 0, 0, err
		}
		if tok2.Kind == token.RBrace {
			p.next()
			return n1, ast.MaxUnbounded, nil
		}
		numTok2, err := p.expect(token.Number)
		if err != nil {
			return 0, 0, err
		}
		n2, err := parseUint(numTok2)
		if err != nil {
			return 0, 0, err
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return 0, 0, err
		}
		return n1, n2, nil
	default:
		return 0, 0, newErr(UnexpectedToken, tok.Span, "expected ',' or '}' in count, got %s", tok.Kind)
	}
}

func parseUint(tok token.Token) (uint64, error) {
	n, err := strconv.ParseUint(tok.Text, 10, 64)
	if err != nil {
		return 0, newErr(InvalidNumber, tok.Span, "invalid count %q", tok.Text)
	}
	return n, nil
}

// --- atoms and structures ---

func (p *Parser) parseAtom() (ast.Pattern, error) {
	tok, err := p.next()
	if err != nil {
		return ast.Pattern{}, err
	}
	switch tok.Kind {
	case token.Star:
		return ast.Any(), nil
	case token.KwNull:
		return ast.NullPattern(), nil

	case token.KwBool:
		return ast.NewBool(ast.BoolPattern{Sub: ast.BoolAny}), nil
	case token.KwTrue:
		return ast.NewBool(ast.BoolPattern{Sub: ast.BoolExact, Value: true}), nil
	case token.KwFalse:
		return ast.NewBool(ast.BoolPattern{Sub: ast.BoolExact, Value: false}), nil

	case token.KwText:
		return ast.NewText(ast.TextPattern{Sub: ast.TextAny}), nil
	case token.TextLiteral:
		return ast.NewText(ast.TextPattern{Sub: ast.TextExact, Value: tok.Text}), nil
	case token.Regex:
		if err := p.checkRegex(tok); err != nil {
			return ast.Pattern{}, err
		}
		return ast.NewText(ast.TextPattern{Sub: ast.TextRegex, Regex: tok.Text}), nil

	case token.KwBstr:
		return ast.NewByteString(ast.ByteStringPattern{Sub: ast.ByteStringAny}), nil
	case token.ByteStringLiteral:
		return p.parseByteStringLiteral(tok)

	case token.KwDigest:
		return ast.NewDigest(ast.DigestPattern{Sub: ast.DigestAny}), nil
	case token.DigestLiteral:
		return p.parseDigestLiteral(tok)

	case token.KwDate:
		return ast.NewDate(ast.DatePattern{Sub: ast.DateAny}), nil
	case token.DateLiteral:
		return p.parseDateLiteral(tok)

	case token.KwNumber:
		return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberAny}), nil
	case token.KwNaN:
		return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberNaN}), nil
	case token.KwInfinity:
		return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberPosInf}), nil
	case token.KwNegInfinity:
		return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberNegInf}), nil
	case token.Number:
		return p.parseNumberLiteral(tok)
	case token.Ge:
		return p.parseNumberCmp(ast.CmpGe)
	case token.Le:
		return p.parseNumberCmp(ast.CmpLe)
	case token.Gt:
		return p.parseNumberCmp(ast.CmpGt)
	case token.Lt:
		return p.parseNumberCmp(ast.CmpLt)

	case token.KwKnown:
		return ast.NewKnownValue(ast.KnownValuePattern{Sub: ast.KnownValueAny}), nil
	case token.KnownLiteral:
		return p.parseKnownLiteral(tok)

	case token.KwTagged:
		return p.parseTagged()
	case token.KwArray:
		return ast.NewArray(ast.ArrayPattern{Kind: ast.ArrayAnyLength}), nil
	case token.KwMap:
		return ast.NewMap(ast.MapPattern{Kind: ast.MapAnyLength}), nil
	case token.KwSearch:
		return p.parseSearch()

	case token.At:
		return p.parseCapture()

	case token.LBracket:
		return p.parseArrayBody()
	case token.LBrace:
		return p.parseMapBodyAfterLBrace()

	case token.EOF:
		return ast.Pattern{}, newErr(UnexpectedEndOfInput, tok.Span, "unexpected end of input")
	default:
		return ast.Pattern{}, newErr(UnexpectedToken, tok.Span, "unexpected token %s", tok.Kind)
	}
}

func (p *Parser) checkRegex(tok token.Token) error {
	if _, err := regexp.Compile(tok.Text); err != nil {
		return &Error{Kind: InvalidRegex, Span: tok.Span, Message: err.Error(), Err: err}
	}
	return nil
}

func stripRegexDelims(s string) (string, bool) {
	if len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func (p *Parser) parseByteStringLiteral(tok token.Token) (ast.Pattern, error) {
	if body, ok := stripRegexDelims(tok.Text); ok {
		if _, err := regexp.Compile(body); err != nil {
			return ast.Pattern{}, &Error{Kind: InvalidRegex, Span: tok.Span, Message: err.Error(), Err: err}
		}
		return ast.NewByteString(ast.ByteStringPattern{Sub: ast.ByteStringRegex, Regex: body}), nil
	}
	b, err := digest.ParseHex(tok.Text)
	if err != nil {
		return ast.Pattern{}, &Error{Kind: InvalidHex, Span: tok.Span, Message: err.Error(), Err: err}
	}
	return ast.NewByteString(ast.ByteStringPattern{Sub: ast.ByteStringExact, Value: b}), nil
}

func (p *Parser) parseDigestLiteral(tok token.Token) (ast.Pattern, error) {
	if body, ok := stripRegexDelims(tok.Text); ok {
		if _, err := regexp.Compile(body); err != nil {
			return ast.Pattern{}, &Error{Kind: InvalidRegex, Span: tok.Span, Message: err.Error(), Err: err}
		}
		return ast.NewDigest(ast.DigestPattern{Sub: ast.DigestRegex, Regex: body}), nil
	}
	var b []byte
	var err error
	if strings.HasPrefix(tok.Text, "ur:digest/") {
		b, err = digest.ParseURI(tok.Text)
	} else {
		b, err = digest.ParseHex(tok.Text)
	}
	if err != nil {
		return ast.Pattern{}, &Error{Kind: InvalidDigest, Span: tok.Span, Message: err.Error(), Err: err}
	}
	if len(b) > digest.Size {
		return ast.Pattern{}, newErr(InvalidDigest, tok.Span, "digest payload longer than %d bytes", digest.Size)
	}
	sub := ast.DigestPrefix
	if len(b) == digest.Size {
		sub = ast.DigestFull
	}
	return ast.NewDigest(ast.DigestPattern{Sub: sub, Value: b}), nil
}

func (p *Parser) parseDateLiteral(tok token.Token) (ast.Pattern, error) {
	if body, ok := stripRegexDelims(tok.Text); ok {
		if _, err := regexp.Compile(body); err != nil {
			return ast.Pattern{}, &Error{Kind: InvalidRegex, Span: tok.Span, Message: err.Error(), Err: err}
		}
		return ast.NewDate(ast.DatePattern{Sub: ast.DateTextRegex, Regex: body}), nil
	}
	if idx := strings.Index(tok.Text, "..."); idx >= 0 {
		loText, hiText := tok.Text[:idx], tok.Text[idx+3:]
		var lo, hi *datetime.Instant
		if loText != "" {
			v, err := datetime.Parse(loText)
			if err != nil {
				return ast.Pattern{}, &Error{Kind: InvalidDate, Span: tok.Span, Message: err.Error(), Err: err}
			}
			lo = &v
		}
		if hiText != "" {
			v, err := datetime.Parse(hiText)
			if err != nil {
				return ast.Pattern{}, &Error{Kind: InvalidDate, Span: tok.Span, Message: err.Error(), Err: err}
			}
			hi = &v
		}
		return ast.NewDate(ast.DatePattern{Sub: ast.DateRange, Lo: lo, Hi: hi}), nil
	}
	v, err := datetime.Parse(tok.Text)
	if err != nil {
		return ast.Pattern{}, &Error{Kind: InvalidDate, Span: tok.Span, Message: err.Error(), Err: err}
	}
	return ast.NewDate(ast.DatePattern{Sub: ast.DateExact, Exact: v}), nil
}

func (p *Parser) parseNumberLiteral(tok token.Token) (ast.Pattern, error) {
	n1, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return ast.Pattern{}, &Error{Kind: InvalidNumber, Span: tok.Span, Message: err.Error(), Err: err}
	}
	peek, err := p.peek()
	if err != nil {
		return ast.Pattern{}, err
	}
	if peek.Kind != token.Ellipsis {
		return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberExact, Exact: n1}), nil
	}
	p.next()
	hiTok, err := p.expect(token.Number)
	if err != nil {
		return ast.Pattern{}, err
	}
	n2, err := strconv.ParseFloat(hiTok.Text, 64)
	if err != nil {
		return ast.Pattern{}, &Error{Kind: InvalidNumber, Span: hiTok.Span, Message: err.Error(), Err: err}
	}
	return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberRange, Lo: n1, Hi: n2}), nil
}

func (p *Parser) parseNumberCmp(op ast.NumberCmpOp) (ast.Pattern, error) {
	tok, err := p.expect(token.Number)
	if err != nil {
		return ast.Pattern{}, err
	}
	x, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return ast.Pattern{}, &Error{Kind: InvalidNumber, Span: tok.Span, Message: err.Error(), Err: err}
	}
	return ast.NewNumber(ast.NumberPattern{Sub: ast.NumberCmp, Op: op, CmpX: x}), nil
}

func (p *Parser) parseKnownLiteral(tok token.Token) (ast.Pattern, error) {
	if body, ok := stripRegexDelims(tok.Text); ok {
		if _, err := regexp.Compile(body); err != nil {
			return ast.Pattern{}, &Error{Kind: InvalidRegex, Span: tok.Span, Message: err.Error(), Err: err}
		}
		return ast.NewKnownValue(ast.KnownValuePattern{Sub: ast.KnownValueNameRegex, Regex: body}), nil
	}
	if v, err := strconv.ParseUint(tok.Text, 10, 64); err == nil {
		return ast.NewKnownValue(ast.KnownValuePattern{Sub: ast.KnownValueByValue, Value: v}), nil
	}
	if _, ok := p.names.ValueByName(tok.Text); !ok {
		return ast.Pattern{}, newErr(UnknownKnownValueName, tok.Span, "unknown known-value name %q", tok.Text)
	}
	return ast.NewKnownValue(ast.KnownValuePattern{Sub: ast.KnownValueByName, Name: tok.Text}), nil
}

func (p *Parser) parseTagged() (ast.Pattern, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Pattern{}, err
	}
	if tok.Kind != token.LParen {
		inner := ast.Any()
		return ast.NewTagged(ast.TaggedPattern{Sel: ast.TagSel{Kind: ast.TagAny}, Inner: &inner}), nil
	}
	p.next()
	sel, err := p.parseTagSel()
	if err != nil {
		return ast.Pattern{}, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return ast.Pattern{}, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return ast.Pattern{}, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Pattern{}, err
	}
	return ast.NewTagged(ast.TaggedPattern{Sel: sel, Inner: &inner}), nil
}

func (p *Parser) parseTagSel() (ast.TagSel, error) {
	tok, err := p.next()
	if err != nil {
		return ast.TagSel{}, err
	}
	switch tok.Kind {
	case token.Number:
		n, err := strconv.ParseUint(tok.Text, 10, 64)
		if err != nil {
			return ast.TagSel{}, &Error{Kind: InvalidNumber, Span: tok.Span, Message: err.Error(), Err: err}
		}
		return ast.TagSel{Kind: ast.TagNumber, Num: n}, nil
	case token.Regex:
		if err := p.checkRegex(tok); err != nil {
			return ast.TagSel{}, err
		}
		return ast.TagSel{Kind: ast.TagNameRegex, Regex: tok.Text}, nil
	default:
		if isWordToken(tok.Kind) {
			return ast.TagSel{Kind: ast.TagName, Name: tok.Text}, nil
		}
		if tok.Kind == token.EOF {
			return ast.TagSel{}, newErr(UnexpectedEndOfInput, tok.Span, "unexpected end of input")
		}
		return ast.TagSel{}, newErr(UnexpectedToken, tok.Span, "expected tag selector, got %s", tok.Kind)
	}
}

func isWordToken(k token.Kind) bool {
	switch k {
	case token.Ident, token.KwBool, token.KwTrue, token.KwFalse, token.KwText, token.KwBstr,
		token.KwDate, token.KwDigest, token.KwKnown, token.KwNull, token.KwNumber, token.KwNaN,
		token.KwInfinity, token.KwNegInfinity, token.KwTagged, token.KwArray, token.KwMap, token.KwSearch:
		return true
	default:
		return false
	}
}

func (p *Parser) parseSearch() (ast.Pattern, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return ast.Pattern{}, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return ast.Pattern{}, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Pattern{}, err
	}
	return ast.NewSearch(inner), nil
}

func (p *Parser) parseCapture() (ast.Pattern, error) {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return ast.Pattern{}, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return ast.Pattern{}, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return ast.Pattern{}, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Pattern{}, err
	}
	return ast.NewCapture(nameTok.Text, ast.NewGroup(inner)), nil
}

// --- array / map bodies ---

func (p *Parser) parseArrayBody() (ast.Pattern, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Pattern{}, err
	}
	switch tok.Kind {
	case token.Star:
		p.next()
		if _, err := p.expect(token.RBracket); err != nil {
			return ast.Pattern{}, err
		}
		return ast.NewArray(ast.ArrayPattern{Kind: ast.ArrayAnyLength}), nil
	case token.RBracket:
		p.next()
		seq := ast.NewSequence(nil)
		return ast.NewArray(ast.ArrayPattern{Kind: ast.ArrayElements, Elements: &seq}), nil
	case token.LBrace:
		isLength, err := p.isLengthSpecAhead()
		if err != nil {
			return ast.Pattern{}, err
		}
		if isLength {
			p.next() // consume '{'
			min, max, err := p.parseBraceCount()
			if err != nil {
				return ast.Pattern{}, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return ast.Pattern{}, err
			}
			return ast.NewArray(ast.ArrayPattern{Kind: ast.ArrayLength, Length: ast.LengthConstraint{Min: min, Max: max}}), nil
		}
		// Not a length spec: the '{' opens a map pattern used as the first
		// sequence item; parseOr handles it (and any |/& chain after it).
		fallthrough
	default:
		first, err := p.parseOr()
		if err != nil {
			return ast.Pattern{}, err
		}
		return p.continueArraySequence(first)
	}
}

// isLengthSpecAhead decides, with the '{' not yet consumed, whether the
// upcoming brace form is an array length specifier ({n}, {n,m}, {n,}) or
// the start of a map pattern used as the first sequence item. The only
// ambiguous case is a leading number: {n} is a length and {n: v, ...} is
// a map whose first key is the number pattern n.
func (p *Parser) isLengthSpecAhead() (bool, error) {
	t1, err := p.peekAt(1)
	if err != nil {
		return false, err
	}
	if t1.Kind != token.Number {
		return false, nil
	}
	t2, err := p.peekAt(2)
	if err != nil {
		return false, err
	}
	return t2.Kind != token.Colon, nil
}

func (p *Parser) continueArraySequence(first ast.Pattern) (ast.Pattern, error) {
	items := []ast.Pattern{first}
	for {
		tok, err := p.peek()
		if err != nil {
			return ast.Pattern{}, err
		}
		if tok.Kind != token.Comma {
			break
		}
		p.next()
		next, err := p.parseOr()
		if err != nil {
			return ast.Pattern{}, err
		}
		items = append(items, next)
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return ast.Pattern{}, err
	}
	seq := ast.NewSequence(items)
	return ast.NewArray(ast.ArrayPattern{Kind: ast.ArrayElements, Elements: &seq}), nil
}

// parseMapBodyAfterLBrace parses a map's body and its closing '}',
// assuming the opening '{' has already been consumed.
func (p *Parser) parseMapBodyAfterLBrace() (ast.Pattern, error) {
	tok, err := p.peek()
	if err != nil {
		return ast.Pattern{}, err
	}
	switch tok.Kind {
	case token.Star:
		p.next()
		if _, err := p.expect(token.RBrace); err != nil {
			return ast.Pattern{}, err
		}
		return ast.NewMap(ast.MapPattern{Kind: ast.MapAnyLength}), nil
	case token.LBrace:
		p.next()
		min, max, err := p.parseBraceCount()
		if err != nil {
			return ast.Pattern{}, err
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return ast.Pattern{}, err
		}
		return ast.NewMap(ast.MapPattern{Kind: ast.MapLength, Length: ast.LengthConstraint{Min: min, Max: max}}), nil
	case token.RBrace:
		p.next()
		return ast.NewMap(ast.MapPattern{Kind: ast.MapEntries}), nil
	default:
		var entries []ast.MapEntry
		for {
			key, err := p.parseOr()
			if err != nil {
				return ast.Pattern{}, err
			}
			if _, err := p.expect(token.Colon); err != nil {
				return ast.Pattern{}, err
			}
			val, err := p.parseOr()
			if err != nil {
				return ast.Pattern{}, err
			}
			entries = append(entries, ast.MapEntry{Key: key, Value: val})
			tok, err := p.peek()
			if err != nil {
				return ast.Pattern{}, err
			}
			if tok.Kind != token.Comma {
				break
			}
			p.next()
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return ast.Pattern{}, err
		}
		return ast.NewMap(ast.MapPattern{Kind: ast.MapEntries, Entries: entries}), nil
	}
}

// containsCapture reports whether p's tree contains a Capture node. A
// capture under Not could never bind anything, so it is rejected at parse.
func containsCapture(p ast.Pattern) bool {
	switch p.Kind {
	case ast.KindCapture:
		return true
	case ast.KindAnd:
		return anyContainsCapture(p.And)
	case ast.KindOr:
		return anyContainsCapture(p.Or)
	case ast.KindNot:
		return containsCapture(*p.Not)
	case ast.KindRepeat:
		return containsCapture(p.Repeat.Child)
	case ast.KindSequence:
		return anyContainsCapture(p.Sequence)
	case ast.KindSearch:
		return containsCapture(*p.Search)
	case ast.KindArray:
		return p.Array.Kind == ast.ArrayElements && containsCapture(*p.Array.Elements)
	case ast.KindMap:
		if p.Map.Kind != ast.MapEntries {
			return false
		}
		for _, e := range p.Map.Entries {
			if containsCapture(e.Key) || containsCapture(e.Value) {
				return true
			}
		}
		return false
	case ast.KindTagged:
		return containsCapture(*p.Tagged.Inner)
	default:
		return false
	}
}

func anyContainsCapture(ps []ast.Pattern) bool {
	for _, p := range ps {
		if containsCapture(p) {
			return true
		}
	}
	return false
}
