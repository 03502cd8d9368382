// Package parser implements a recursive-descent, operator-precedence
// parser for Sparkling's C-style surface syntax, producing the AST
// shape pkg/compiler consumes.
//
// Parser architecture:
//
// The parser maintains a two-token lookahead window (curTok/peekTok)
// over the lexer's token stream, the same scaffold the language's
// statement parser uses: curTok is examined to decide which grammar
// production applies, peekTok lets the parser commit to a production
// without first consuming the token that confirms it.
//
// Expression parsing uses precedence climbing (a table-driven Pratt
// parser): parseExpression(minPrec) parses a primary/unary expression,
// then repeatedly folds in any following binary operator whose
// precedence is at least minPrec, recursing with one above that
// operator's precedence to parse its right-hand side, so every operator
// in the binary table associates to the left. Assignment and "?:",
// which associate to the right, are handled outside that table.
//
// Error handling: syntax errors are accumulated in p.errors rather than
// aborting at the first one, so a single Parse() call can report several
// problems; Parse() itself still returns a non-nil error if the list is
// non-empty.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/lexer"
)

// Parser holds the state of one parse. It is stateful and single-use:
// create a new Parser for each source file or REPL line.
type Parser struct {
	l       *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token
	errors  []string
}

// New creates a new parser over the given source text.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) addError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curTok.Line, msg))
}

// Errors returns every syntax error accumulated during Parse.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.curTok.Type != tt {
		p.addError("expected %s, got %s %q", tt, p.curTok.Type, p.curTok.Literal)
		return false
	}
	p.nextToken()
	return true
}

// Parse parses the whole input as a Program.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.curTok.Type != lexer.TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Children = append(prog.Children, stmt)
		}
	}
	if len(p.errors) > 0 {
		return prog, fmt.Errorf("syntax error near line %d: %s", p.curTok.Line, strings.Join(p.errors, "; "))
	}
	return prog, nil
}

func (p *Parser) pos() (int, int) { return p.curTok.Line, p.curTok.Column }

// parseStatement dispatches on the current token to the grammar
// production for one statement.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curTok.Type {
	case lexer.TokenVar:
		return p.parseVarDecl(false)
	case lexer.TokenConst:
		return p.parseVarDecl(true)
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenDo:
		return p.parseDoWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenBreak:
		line, col := p.pos()
		p.nextToken()
		p.consumeSemi()
		return &ast.Break{Base: ast.Base{Line: line, Column: col}}
	case lexer.TokenContinue:
		line, col := p.pos()
		p.nextToken()
		p.consumeSemi()
		return &ast.Continue{Base: ast.Base{Line: line, Column: col}}
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenFunction:
		if p.peekTok.Type == lexer.TokenIdentifier {
			return p.parseFuncDecl()
		}
		return p.parseExprStatement()
	case lexer.TokenSemi:
		p.nextToken()
		return nil
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) consumeSemi() {
	if p.curTok.Type == lexer.TokenSemi {
		p.nextToken()
	}
}

func (p *Parser) parseVarDecl(isConst bool) ast.Statement {
	line, col := p.pos()
	p.nextToken() // consume 'var'/'const'

	var bindings []*ast.Binding
	for {
		if p.curTok.Type != lexer.TokenIdentifier {
			p.addError("expected identifier in declaration")
			break
		}
		name := p.curTok.Literal
		p.nextToken()

		var init ast.Expression
		if p.curTok.Type == lexer.TokenAssign {
			p.nextToken()
			init = p.parseExpression(precLowest)
		}
		bindings = append(bindings, &ast.Binding{Name: name, Init: init})

		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	p.consumeSemi()

	if isConst {
		return &ast.ConstDecl{ast.Base{line, col}, bindings}
	}
	return &ast.VarDecl{ast.Base{line, col}, bindings}
}

func (p *Parser) parseBlock() *ast.Block {
	line, col := p.pos()
	p.expect(lexer.TokenLBrace)
	blk := &ast.Block{Base: ast.Base{line, col}}
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			blk.Children = append(blk.Children, stmt)
		}
	}
	p.expect(lexer.TokenRBrace)
	return blk
}

// bodyOrStatement lets if/while/for take either a brace block or a
// single bare statement as body, matching ordinary C-family grammars.
func (p *Parser) bodyOrStatement() ast.Statement {
	if p.curTok.Type == lexer.TokenLBrace {
		return p.parseBlock()
	}
	return p.parseStatement()
}

func (p *Parser) parseIf() ast.Statement {
	line, col := p.pos()
	p.nextToken() // consume 'if'
	hasParen := p.curTok.Type == lexer.TokenLParen
	if hasParen {
		p.nextToken()
	}
	cond := p.parseExpression(precLowest)
	if hasParen {
		p.expect(lexer.TokenRParen)
	}
	then := p.bodyOrStatement()

	var elseStmt ast.Statement
	if p.curTok.Type == lexer.TokenElse {
		p.nextToken()
		if p.curTok.Type == lexer.TokenIf {
			elseStmt = p.parseIf()
		} else {
			elseStmt = p.bodyOrStatement()
		}
	}
	return &ast.If{Base: ast.Base{line, col}, Cond: cond, Then: then, Else: elseStmt}
}

func (p *Parser) parseWhile() ast.Statement {
	line, col := p.pos()
	p.nextToken()
	hasParen := p.curTok.Type == lexer.TokenLParen
	if hasParen {
		p.nextToken()
	}
	cond := p.parseExpression(precLowest)
	if hasParen {
		p.expect(lexer.TokenRParen)
	}
	body := p.bodyOrStatement()
	return &ast.While{Base: ast.Base{line, col}, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Statement {
	line, col := p.pos()
	p.nextToken() // consume 'do'
	body := p.bodyOrStatement()
	if !p.expect(lexer.TokenWhile) {
		return nil
	}
	hasParen := p.curTok.Type == lexer.TokenLParen
	if hasParen {
		p.nextToken()
	}
	cond := p.parseExpression(precLowest)
	if hasParen {
		p.expect(lexer.TokenRParen)
	}
	p.consumeSemi()
	return &ast.DoWhile{Base: ast.Base{line, col}, Cond: cond, Body: body}
}

func (p *Parser) parseFor() ast.Statement {
	line, col := p.pos()
	p.nextToken() // consume 'for'
	p.expect(lexer.TokenLParen)

	var init ast.Statement
	if p.curTok.Type != lexer.TokenSemi {
		init = p.parseStatement()
	} else {
		p.nextToken()
	}

	var cond ast.Expression
	if p.curTok.Type != lexer.TokenSemi {
		cond = p.parseExpression(precLowest)
	}
	p.expect(lexer.TokenSemi)

	var incr ast.Statement
	if p.curTok.Type != lexer.TokenRParen {
		x := p.parseExpression(precLowest)
		incr = &ast.ExprStatement{X: x}
	}
	p.expect(lexer.TokenRParen)

	body := p.bodyOrStatement()
	return &ast.For{Base: ast.Base{line, col}, Init: init, Cond: cond, Incr: incr, Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	line, col := p.pos()
	p.nextToken()
	var val ast.Expression
	if p.curTok.Type != lexer.TokenSemi && p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		val = p.parseExpression(precLowest)
	}
	p.consumeSemi()
	return &ast.Return{Base: ast.Base{line, col}, X: val}
}

func (p *Parser) parseFuncDecl() ast.Statement {
	fn := p.parseFuncLit(true)
	p.consumeSemi()
	return fn
}

func (p *Parser) parseFuncLit(named bool) *ast.FuncLit {
	line, col := p.pos()
	p.nextToken() // consume 'function'

	name := ""
	if named || p.curTok.Type == lexer.TokenIdentifier {
		if p.curTok.Type == lexer.TokenIdentifier {
			name = p.curTok.Literal
			p.nextToken()
		}
	}

	p.expect(lexer.TokenLParen)
	var params []string
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		if p.curTok.Type == lexer.TokenIdentifier {
			params = append(params, p.curTok.Literal)
			p.nextToken()
		}
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRParen)

	body := p.parseBlock()
	return &ast.FuncLit{Base: ast.Base{line, col}, Name: name, Params: params, Body: body}
}

func (p *Parser) parseExprStatement() ast.Statement {
	line, col := p.pos()
	x := p.parseExpression(precLowest)
	p.consumeSemi()
	if x == nil {
		return nil
	}
	return &ast.ExprStatement{Base: ast.Base{line, col}, X: x}
}

// Operator precedence table, lowest to highest. assignment is handled
// outside the table since it is right-associative and its left side
// must be checked for lvalue-ness by the compiler, not the parser.
const (
	precLowest = iota
	precAssign
	precTernary
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precConcat
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrec = map[lexer.TokenType]int{
	lexer.TokenOr:         precLogicalOr,
	lexer.TokenAnd:        precLogicalAnd,
	lexer.TokenPipe:       precBitOr,
	lexer.TokenCaret:      precBitXor,
	lexer.TokenAmp:        precBitAnd,
	lexer.TokenEq:         precEquality,
	lexer.TokenNotEq:      precEquality,
	lexer.TokenLess:       precRelational,
	lexer.TokenGreater:    precRelational,
	lexer.TokenLessEq:     precRelational,
	lexer.TokenGreaterEq:  precRelational,
	lexer.TokenShl:        precShift,
	lexer.TokenShr:        precShift,
	lexer.TokenConcat:     precConcat,
	lexer.TokenPlus:       precAdditive,
	lexer.TokenMinus:      precAdditive,
	lexer.TokenStar:       precMultiplicative,
	lexer.TokenSlash:      precMultiplicative,
	lexer.TokenPercent:    precMultiplicative,
}

var compoundAssignOps = map[lexer.TokenType]string{
	lexer.TokenPlusEq:    "+",
	lexer.TokenMinusEq:   "-",
	lexer.TokenStarEq:    "*",
	lexer.TokenSlashEq:   "/",
	lexer.TokenPercentEq: "%",
	lexer.TokenAndEq:     "&",
	lexer.TokenOrEq:      "|",
	lexer.TokenXorEq:     "^",
	lexer.TokenShlEq:     "<<",
	lexer.TokenShrEq:     ">>",
}

// parseExpression implements precedence climbing: it parses one unary
// term, then folds in operators at or above minPrec left to right.
func (p *Parser) parseExpression(minPrec int) ast.Expression {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	if p.curTok.Type == lexer.TokenAssign && minPrec <= precAssign {
		line, col := p.pos()
		p.nextToken()
		right := p.parseExpression(precAssign)
		return &ast.Assign{Base: ast.Base{line, col}, Left: left, Right: right}
	}
	if op, ok := compoundAssignOps[p.curTok.Type]; ok && minPrec <= precAssign {
		line, col := p.pos()
		p.nextToken()
		right := p.parseExpression(precAssign)
		return &ast.CompoundAssign{Base: ast.Base{line, col}, Op: op, Left: left, Right: right}
	}
	if p.curTok.Type == lexer.TokenQuestion && minPrec <= precTernary {
		return p.parseTernary(left)
	}

	for {
		prec, ok := binPrec[p.curTok.Type]
		if !ok || prec < minPrec {
			break
		}
		op := p.curTok.Literal
		line, col := p.pos()
		p.nextToken()
		right := p.parseExpression(prec + 1)
		left = &ast.BinaryExpr{Base: ast.Base{line, col}, Op: op, Left: left, Right: right}
	}
	if p.curTok.Type == lexer.TokenQuestion && minPrec <= precTernary {
		return p.parseTernary(left)
	}
	return left
}

func (p *Parser) parseTernary(cond ast.Expression) ast.Expression {
	ln, cl := p.pos()
	p.nextToken() // consume '?'
	then := p.parseExpression(precAssign)
	p.expect(lexer.TokenColon)
	els := p.parseExpression(precTernary)
	return &ast.Ternary{
		Base: ast.Base{Line: ln, Column: cl},
		Cond: cond,
		Then: then,
		Else: els,
	}
}

// parseUnary handles prefix operators, then hands off to parsePostfix
// for the primary term plus any trailing index/member/call chains.
func (p *Parser) parseUnary() ast.Expression {
	line, col := p.pos()
	switch p.curTok.Type {
	case lexer.TokenMinus, lexer.TokenNot, lexer.TokenTilde:
		op := p.curTok.Literal
		p.nextToken()
		x := p.parseExpression(precUnary)
		if lit, ok := x.(*ast.Literal); ok && op == "-" {
			// Constant-fold unary minus on a numeric literal.
			switch lit.Kind {
			case ast.LitInt:
				return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitInt, Int: -lit.Int}
			case ast.LitFloat:
				return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitFloat, Flt: -lit.Flt}
			}
		}
		return &ast.UnaryExpr{Base: ast.Base{line, col}, Op: op, X: x}
	case lexer.TokenSizeof:
		p.nextToken()
		x := p.parseExpression(precUnary)
		return &ast.UnaryExpr{Base: ast.Base{line, col}, Op: "sizeof", X: x}
	case lexer.TokenTypeof:
		p.nextToken()
		x := p.parseExpression(precUnary)
		return &ast.UnaryExpr{Base: ast.Base{line, col}, Op: "typeof", X: x}
	case lexer.TokenIncr, lexer.TokenDecr:
		op := p.curTok.Literal
		p.nextToken()
		x := p.parseUnary()
		return &ast.IncDec{Base: ast.Base{line, col}, Op: op, Prefix: true, X: x}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(x ast.Expression) ast.Expression {
	for {
		line, col := p.pos()
		switch p.curTok.Type {
		case lexer.TokenLBracket:
			p.nextToken()
			key := p.parseExpression(precLowest)
			p.expect(lexer.TokenRBracket)
			x = &ast.Index{Base: ast.Base{line, col}, X: x, Key: key}
		case lexer.TokenDot:
			p.nextToken()
			if p.curTok.Type != lexer.TokenIdentifier {
				p.addError("expected property name after '.'")
				return x
			}
			name := p.curTok.Literal
			p.nextToken()
			x = &ast.Member{Base: ast.Base{line, col}, X: x, Name: name}
		case lexer.TokenLParen:
			x = p.parseCall(x)
		case lexer.TokenIncr, lexer.TokenDecr:
			op := p.curTok.Literal
			p.nextToken()
			x = &ast.IncDec{Base: ast.Base{line, col}, Op: op, Prefix: false, X: x}
		default:
			return x
		}
	}
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	line, col := p.pos()
	p.nextToken() // consume '('
	children := []ast.Expression{callee}
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		children = append(children, p.parseExpression(precAssign))
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRParen)
	return &ast.Call{Base: ast.Base{line, col}, Children: children}
}

func (p *Parser) parsePrimary() ast.Expression {
	line, col := p.pos()
	switch p.curTok.Type {
	case lexer.TokenInteger:
		n, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
		if err != nil {
			p.addError("invalid integer literal %q", p.curTok.Literal)
		}
		p.nextToken()
		return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitInt, Int: n}
	case lexer.TokenFloat:
		f, err := strconv.ParseFloat(p.curTok.Literal, 64)
		if err != nil {
			p.addError("invalid float literal %q", p.curTok.Literal)
		}
		p.nextToken()
		return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitFloat, Flt: f}
	case lexer.TokenString:
		s := p.curTok.Literal
		p.nextToken()
		return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitString, Str: s}
	case lexer.TokenTrue:
		p.nextToken()
		return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitBool, Bool: true}
	case lexer.TokenFalse:
		p.nextToken()
		return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitBool, Bool: false}
	case lexer.TokenNil:
		p.nextToken()
		return &ast.Literal{Base: ast.Base{line, col}, Kind: ast.LitNil}
	case lexer.TokenIdentifier:
		name := p.curTok.Literal
		p.nextToken()
		return &ast.Ident{Base: ast.Base{line, col}, Name: name}
	case lexer.TokenFunction:
		return p.parseFuncLit(false)
	case lexer.TokenLParen:
		p.nextToken()
		x := p.parseExpression(precLowest)
		p.expect(lexer.TokenRParen)
		return x
	case lexer.TokenLBracket:
		return p.parseArrayLit()
	case lexer.TokenLBrace:
		return p.parseHashMapLit()
	default:
		p.addError("unexpected token %s %q", p.curTok.Type, p.curTok.Literal)
		p.nextToken()
		return nil
	}
}

// parseArrayLit parses a "[e1, e2, ...]" literal.
func (p *Parser) parseArrayLit() ast.Expression {
	line, col := p.pos()
	p.nextToken() // consume '['
	lit := &ast.ArrayLit{Base: ast.Base{line, col}}
	for p.curTok.Type != lexer.TokenRBracket && p.curTok.Type != lexer.TokenEOF {
		lit.Children = append(lit.Children, p.parseExpression(precAssign))
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRBracket)
	return lit
}

// parseHashMapLit parses a "{k: v, k2: v2, ...}" literal.
func (p *Parser) parseHashMapLit() ast.Expression {
	line, col := p.pos()
	p.nextToken() // consume '{'
	lit := &ast.HashMapLit{Base: ast.Base{line, col}}
	for p.curTok.Type != lexer.TokenRBrace && p.curTok.Type != lexer.TokenEOF {
		key := p.parseExpression(precAssign)
		p.expect(lexer.TokenColon)
		val := p.parseExpression(precAssign)
		lit.Children = append(lit.Children, key, val)
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRBrace)
	return lit
}
