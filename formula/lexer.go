package formula

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokCellRef
	tokRange
	tokFunction
	tokLParen
	tokRParen
	tokComma
	tokOp
	tokError
	tokEOF
)

// errorLiterals maps the on-the-wire error literal spelling (without its
// leading "#") to its short code, as used by Value.Err/AsString.
var errorLiterals = map[string]string{
	"DIV/0!": "DIV/0",
	"REF!":   "REF",
	"VALUE!": "VALUE",
	"NAME?":  "NAME",
	"NUM!":   "NUM",
	"N/A":    "N/A",
	"NULL!":  "NULL",
}

type token struct {
	kind tokenKind
	text string // operator text, function name, or range "start:end"
	num  float64
	ref  CellRef
	rng  [2]CellRef
}

// lex tokenizes a formula string: input is trimmed, a leading "=" is
// stripped, and identifier runs are classified on the fly into ranges,
// function names, or cell references.
func lex(input string) ([]token, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "=")
	var toks []token
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case c == '#':
			matched := false
			for lit, code := range errorLiterals {
				if strings.HasPrefix(s[i+1:], lit) {
					toks = append(toks, token{kind: tokError, text: code})
					i += 1 + len(lit)
					matched = true
					break
				}
			}
			if !matched {
				return nil, errUnexpectedToken(s[i:])
			}
		case c == '"':
			j := i + 1
			for j < n && s[j] != '"' {
				j++
			}
			if j >= n {
				return nil, errUnexpectedEnd()
			}
			toks = append(toks, token{kind: tokString, text: s[i+1 : j]})
			i = j + 1
		case c == '<' || c == '>' || c == '=':
			op := string(c)
			if i+1 < n {
				two := s[i : i+2]
				if two == "<=" || two == ">=" || two == "<>" {
					op = two
				}
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += len(op)
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '^' || c == '&':
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < n && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			f, _ := strconv.ParseFloat(s[i:j], 64)
			toks = append(toks, token{kind: tokNumber, num: f})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(s[j]) {
				j++
			}
			ident := s[i:j]
			upper := strings.ToUpper(stripDollar(ident))
			if j < n && s[j] == ':' {
				k := j + 1
				for k < n && isIdentPart(s[k]) {
					k++
				}
				second := strings.ToUpper(stripDollar(s[j+1 : k]))
				start, ok1 := parseCellRef(upper)
				end, ok2 := parseCellRef(second)
				if ok1 && ok2 {
					toks = append(toks, token{kind: tokRange, rng: [2]CellRef{start, end}})
					i = k
					continue
				}
			}
			if j < n && s[j] == '(' {
				toks = append(toks, token{kind: tokFunction, text: upper})
				i = j
				continue
			}
			if ref, ok := parseCellRef(upper); ok {
				toks = append(toks, token{kind: tokCellRef, ref: ref})
				i = j
				continue
			}
			toks = append(toks, token{kind: tokFunction, text: upper})
			i = j
		default:
			return nil, errUnexpectedToken(string(c))
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '$' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}
