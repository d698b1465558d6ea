package layout

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchMode selects how Search interprets its pattern.
type SearchMode uint8

const (
	// SearchGlob treats the pattern as literal text where '*' matches any run of
	// characters.
	SearchGlob SearchMode = iota
	// SearchRegexp uses the pattern as a regular expression.
	SearchRegexp
)

func (m SearchMode) String() string {
	switch m {
	case SearchGlob:
		return "glob"
	case SearchRegexp:
		return "regexp"
	default:
		return "unknown"
	}
}

// Pattern is a compiled search pattern. It is unanchored and ignores the case of
// ASCII letters only: 'k' does not match the Kelvin sign.
type Pattern struct {
	re *regexp.Regexp
}

// MatchString reports whether name contains a match of the pattern.
func (p *Pattern) MatchString(name string) bool {
	return p.re.MatchString(asciiLower(name))
}

// CompilePattern compiles a search pattern for mode.
func CompilePattern(pattern string, mode SearchMode) (*Pattern, error) {
	var expr string
	switch mode {
	case SearchGlob:
		expr = strings.ReplaceAll(regexp.QuoteMeta(asciiLower(pattern)), `\*`, `.*?`)
	case SearchRegexp:
		expr = lowerRegexp(pattern)
	default:
		return nil, fmt.Errorf("unknown search mode %d", mode)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile search pattern %q: %w", pattern, err)
	}

	return &Pattern{re: re}, nil
}

func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}

			return string(b)
		}
	}

	return s
}

// lowerRegexp lowers the ASCII letters of a regular expression that match text.
// Escapes such as \S or \p{Greek} and flag groups such as (?U) keep their case.
func lowerRegexp(expr string) string {
	var sb strings.Builder
	sb.Grow(len(expr))

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			end := i + 2
			if (expr[i+1] == 'p' || expr[i+1] == 'P') && end < len(expr) {
				end++
				if expr[end-1] == '{' {
					if j := strings.IndexByte(expr[end:], '}'); j >= 0 {
						end += j + 1
					}
				}
			}
			sb.WriteString(expr[i:end])
			i = end - 1
		case c == '(' && strings.HasPrefix(expr[i:], "(?"):
			end := strings.IndexAny(expr[i+2:], ":)<")
			if end < 0 {
				end = len(expr)
			} else {
				end += i + 3
			}
			sb.WriteString(expr[i:end])
			i = end - 1
		case 'A' <= c && c <= 'Z':
			sb.WriteByte(c + 'a' - 'A')
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

// Search returns the names of the data fields matching pattern, in declaration
// order.
func (l *Layout) Search(pattern string, mode SearchMode) ([]string, error) {
	re, err := CompilePattern(pattern, mode)
	if err != nil {
		return nil, err
	}

	var out []string
	for f := range l.Fields() {
		if re.MatchString(f.Name) {
			out = append(out, f.Name)
		}
	}

	return out, nil
}

// Select returns the data fields matching any of the glob patterns, in
// declaration order. No pattern selects every data field.
func (l *Layout) Select(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		return l.Names(), nil
	}

	res := make([]*Pattern, len(patterns))
	for i, p := range patterns {
		re, err := CompilePattern(p, SearchGlob)
		if err != nil {
			return nil, err
		}
		res[i] = re
	}

	var out []string
	for f := range l.Fields() {
		for _, re := range res {
			if re.MatchString(f.Name) {
				out = append(out, f.Name)
				break
			}
		}
	}

	return out, nil
}
