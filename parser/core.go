package parser

import "github.com/ledgerfold/ledgerfold/ast"

// Parser consumes a token stream produced by the Lexer and builds an AST.
// It holds the original source for zero-copy token text extraction and an
// interner shared with the lexer so repeated strings are deduplicated.
type Parser struct {
	source   []byte
	tokens   []Token
	pos      int
	filename string
	interner *Interner
}

// NewParser creates a parser over a token stream already produced by a Lexer.
func NewParser(source []byte, tokens []Token, filename string, interner *Interner) *Parser {
	return &Parser{
		source:   source,
		tokens:   tokens,
		filename: filename,
		interner: interner,
	}
}

// parseComment consumes the current COMMENT token and returns an ast.Comment.
// The lexer folds a comment's trailing newline into the token span, so it
// must be stripped here to keep Content free of it.
func (p *Parser) parseComment() *ast.Comment {
	tok := p.advance()
	text := tok.String(p.source)
	if len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}

	c := &ast.Comment{Content: text, Type: ast.StandaloneComment}
	c.SetPosition(tokenPosition(tok, p.filename))
	return c
}

// finishDirective attaches a trailing same-line comment and any indented
// metadata lines to a directive that has already had its own fields parsed.
func (p *Parser) finishDirective(d ast.Directive) error {
	line := d.Position().Line

	if !p.isAtEnd() && p.peek().Type == COMMENT && p.peek().Line == line {
		d.SetComment(p.parseComment())
	}

	if !p.isAtEnd() && p.peek().Line > line && p.peek().Column > 1 {
		d.AddMetadata(p.parseMetadataFromLine(line)...)
	}

	return nil
}

// parseOption parses: option STRING STRING
func (p *Parser) parseOption() (*ast.Option, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(OPTION, "expected 'option'")

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	value, err := p.parseString()
	if err != nil {
		return nil, err
	}

	opt := &ast.Option{Name: name, Value: value}
	opt.SetPosition(pos)
	return opt, nil
}

// parseInclude parses: include STRING
func (p *Parser) parseInclude() (*ast.Include, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(INCLUDE, "expected 'include'")

	filename, err := p.parseString()
	if err != nil {
		return nil, err
	}

	inc := &ast.Include{Filename: filename}
	inc.SetPosition(pos)
	return inc, nil
}

// parsePlugin parses: plugin STRING [STRING]
func (p *Parser) parsePlugin() (*ast.Plugin, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(PLUGIN, "expected 'plugin'")

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}

	plugin := &ast.Plugin{Name: name}
	if p.check(STRING) {
		config, err := p.parseString()
		if err != nil {
			return nil, err
		}
		plugin.Config = config
	}
	plugin.SetPosition(pos)
	return plugin, nil
}

// parsePushtag parses: pushtag TAG
func (p *Parser) parsePushtag() (*ast.Pushtag, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(PUSHTAG, "expected 'pushtag'")

	tag, err := p.parseTag()
	if err != nil {
		return nil, err
	}

	pt := &ast.Pushtag{Tag: tag}
	pt.SetPosition(pos)
	return pt, nil
}

// parsePoptag parses: poptag TAG
func (p *Parser) parsePoptag() (*ast.Poptag, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(POPTAG, "expected 'poptag'")

	tag, err := p.parseTag()
	if err != nil {
		return nil, err
	}

	pt := &ast.Poptag{Tag: tag}
	pt.SetPosition(pos)
	return pt, nil
}

// parsePushmeta parses: pushmeta KEY: ["value"]
func (p *Parser) parsePushmeta() (*ast.Pushmeta, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(PUSHMETA, "expected 'pushmeta'")

	keyTok := p.expect(IDENT, "expected metadata key")
	if keyTok.Type == ILLEGAL {
		return nil, p.errorAtEndOfPrevious("expected metadata key")
	}
	key := keyTok.String(p.source)

	p.consume(COLON, "expected ':'")

	var value string
	if p.check(STRING) {
		str, err := p.parseString()
		if err != nil {
			return nil, err
		}
		value = str.Value
	} else if !p.isAtEnd() && p.peek().Line == keyTok.Line {
		value = p.parseRestOfLine()
	}

	pm := &ast.Pushmeta{Key: key, Value: value}
	pm.SetPosition(pos)
	return pm, nil
}

// parsePopmeta parses: popmeta KEY:
func (p *Parser) parsePopmeta() (*ast.Popmeta, error) {
	pos := p.tokenPositionFromPeek()
	p.consume(POPMETA, "expected 'popmeta'")

	keyTok := p.expect(IDENT, "expected metadata key")
	if keyTok.Type == ILLEGAL {
		return nil, p.errorAtEndOfPrevious("expected metadata key")
	}
	key := keyTok.String(p.source)

	p.consume(COLON, "expected ':'")

	pm := &ast.Popmeta{Key: key}
	pm.SetPosition(pos)
	return pm, nil
}

// parseDirectiveBody dispatches on the token following a date to the
// matching directive parser, using keyPos as the directive's own position
// (the keyword's position, not the date's).
func (p *Parser) parseDirectiveBody(keyPos ast.Position, date *ast.Date) (ast.Directive, error) {
	switch p.peek().Type {
	case TXN, ASTERISK, EXCLAIM, STRING:
		return p.parseTransaction(keyPos, date)
	case BALANCE:
		return p.parseBalance(keyPos, date)
	case OPEN:
		return p.parseOpen(keyPos, date)
	case CLOSE:
		return p.parseClose(keyPos, date)
	case COMMODITY:
		return p.parseCommodity(keyPos, date)
	case PAD:
		return p.parsePad(keyPos, date)
	case NOTE:
		return p.parseNote(keyPos, date)
	case DOCUMENT:
		return p.parseDocument(keyPos, date)
	case PRICE:
		return p.parsePrice(keyPos, date)
	case EVENT:
		return p.parseEvent(keyPos, date)
	case CUSTOM:
		return p.parseCustom(keyPos, date)
	default:
		tok := p.peek()
		return nil, p.errorAtToken(tok, "expected directive keyword after date, got %s", tok.Type)
	}
}

// parseAST drives the whole token stream and assembles a complete ast.AST.
func (p *Parser) parseAST() (*ast.AST, error) {
	tree := &ast.AST{}

	for !p.isAtEnd() {
		tok := p.peek()

		switch tok.Type {
		case NEWLINE:
			p.advance()
			bl := &ast.BlankLine{}
			bl.SetPosition(tokenPosition(tok, p.filename))
			tree.BlankLines = append(tree.BlankLines, bl)

		case COMMENT:
			comment := p.parseComment()
			if p.check(NEWLINE) {
				comment.Type = ast.SectionComment
			}
			tree.Comments = append(tree.Comments, comment)

		case OPTION:
			opt, err := p.parseOption()
			if err != nil {
				return nil, err
			}
			tree.Options = append(tree.Options, opt)

		case INCLUDE:
			inc, err := p.parseInclude()
			if err != nil {
				return nil, err
			}
			tree.Includes = append(tree.Includes, inc)

		case PLUGIN:
			plugin, err := p.parsePlugin()
			if err != nil {
				return nil, err
			}
			tree.Plugins = append(tree.Plugins, plugin)

		case PUSHTAG:
			pt, err := p.parsePushtag()
			if err != nil {
				return nil, err
			}
			tree.Pushtags = append(tree.Pushtags, pt)

		case POPTAG:
			pt, err := p.parsePoptag()
			if err != nil {
				return nil, err
			}
			tree.Poptags = append(tree.Poptags, pt)

		case PUSHMETA:
			pm, err := p.parsePushmeta()
			if err != nil {
				return nil, err
			}
			tree.Pushmetas = append(tree.Pushmetas, pm)

		case POPMETA:
			pm, err := p.parsePopmeta()
			if err != nil {
				return nil, err
			}
			tree.Popmetas = append(tree.Popmetas, pm)

		case DATE:
			date, err := p.parseDate()
			if err != nil {
				return nil, err
			}

			// Skip blank lines between the date and its directive keyword;
			// the directive's position is the keyword's, not the date's.
			for p.check(NEWLINE) {
				p.advance()
			}

			if p.isAtEnd() {
				return nil, p.errorAtEndOfPrevious("expected directive after date")
			}

			keyPos := p.tokenPositionFromPeek()
			directive, err := p.parseDirectiveBody(keyPos, date)
			if err != nil {
				return nil, err
			}
			tree.Directives = append(tree.Directives, directive)

		default:
			return nil, p.errorAtToken(tok, "unexpected token %s at top level", tok.Type)
		}
	}

	return tree, nil
}
