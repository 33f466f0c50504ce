package contextres

import (
	"path/filepath"
	"regexp"
	"strings"
)

// language describes how definitions are recognized and delimited for one
// source language.
type language struct {
	name string
	// indent selects indentation-delimited bodies (Python) instead of
	// brace-balance tracking.
	indent bool
	// block matches header lines that open a definition body.
	block func(sym string) []*regexp.Regexp
	// decl matches single-statement declarations (variables, constants,
	// type aliases) that may not open a body at all.
	decl func(sym string) []*regexp.Regexp
}

func languageForFile(name string) (*language, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".go":
		return goLang, true
	case ".py":
		return pythonLang, true
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return jsLang, true
	case ".java":
		return javaLang, true
	case ".cs":
		return csharpLang, true
	case ".c", ".cpp":
		return cLang, true
	}
	return nil, false
}

var goLang = &language{
	name: "Go",
	block: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			// Plain functions, methods with receivers, and generic forms.
			regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?` + s + `\s*[(\[]`),
		}
	},
	decl: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^(?:var|const|type)\s+` + s + `\b`),
		}
	},
}

var pythonLang = &language{
	name:   "Python",
	indent: true,
	block: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:async\s+)?def\s+` + s + `\s*\(`),
			regexp.MustCompile(`^\s*class\s+` + s + `\b`),
		}
	},
	decl: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			// Module-level assignment only; indented assignments are locals.
			regexp.MustCompile(`^` + s + `\s*=`),
		}
	},
}

var jsLang = &language{
	name: "JavaScript",
	block: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*` + s + `\s*\(`),
			regexp.MustCompile(`^\s*(?:export\s+)?class\s+` + s + `\b`),
			// Object/class method shorthand.
			regexp.MustCompile(`^\s*(?:async\s+)?` + s + `\s*\([^)]*\)\s*\{`),
		}
	},
	decl: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+` + s + `\b`),
		}
	},
}

var javaLang = &language{
	name: "Java",
	block: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized|native|default)\s+)*[\w<>\[\],.\s]+\s` + s + `\s*\([^;]*$`),
			regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract)\s+)*(?:class|interface|enum|record)\s+` + s + `\b`),
		}
	},
	decl: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final)\s+)*[\w<>\[\],.\s]+\s` + s + `\s*=`),
		}
	},
}

var csharpLang = &language{
	name: "C#",
	block: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|virtual|override|sealed|abstract|async|partial)\s+)*[\w<>\[\],.?\s]+\s` + s + `\s*\([^;]*$`),
			regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|sealed|abstract|partial)\s+)*(?:class|interface|struct|enum|record)\s+` + s + `\b`),
		}
	},
	decl: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|readonly|const)\s+)*[\w<>\[\],.?\s]+\s` + s + `\s*=`),
		}
	},
}

var cLang = &language{
	name: "C/C++",
	block: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			// Return type then name then arg list; excluding ';' rules out
			// prototypes and plain call statements.
			regexp.MustCompile(`^[A-Za-z_][\w\s*&:<>,~]*[\s*&]` + s + `\s*\([^;]*$`),
			regexp.MustCompile(`^\s*(?:typedef\s+)?(?:struct|class|enum|union)\s+` + s + `\b`),
		}
	},
	decl: func(sym string) []*regexp.Regexp {
		s := regexp.QuoteMeta(sym)
		return []*regexp.Regexp{
			regexp.MustCompile(`^\s*#define\s+` + s + `\b`),
			regexp.MustCompile(`^[A-Za-z_][\w\s*&:<>,\[\]]*[\s*&]` + s + `\s*=`),
		}
	},
}

// extractDefinition scans content line by line for a definition of symbol
// and returns the full block, or "" when no header matches.
func extractDefinition(lang *language, content, symbol string) string {
	lines := strings.Split(content, "\n")
	blockPats := lang.block(symbol)
	declPats := lang.decl(symbol)

	for i, line := range lines {
		if matchAny(blockPats, line) {
			if lang.indent {
				return indentBlock(lines, i)
			}
			return braceBlock(lines, i)
		}
		if matchAny(declPats, line) {
			if lang.indent {
				return indentBlock(lines, i)
			}
			if !strings.Contains(line, "{") {
				// Single-statement declaration: the header is the block.
				return line
			}
			return braceBlock(lines, i)
		}
	}
	return ""
}

func matchAny(pats []*regexp.Regexp, line string) bool {
	for _, p := range pats {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// braceBlock accumulates lines from start, tracking a running brace
// balance, and stops once the balance returns to zero after having been
// positive. A header that never opens a brace is returned on its own.
func braceBlock(lines []string, start int) string {
	var out []string
	balance := 0
	opened := false

	for i := start; i < len(lines); i++ {
		line := lines[i]
		out = append(out, line)
		balance += strings.Count(line, "{") - strings.Count(line, "}")
		if balance > 0 {
			opened = true
		}
		if opened && balance <= 0 {
			return strings.Join(out, "\n")
		}
		if !opened && i == start && !strings.Contains(line, "{") {
			// Signatures split across lines: keep going until a brace opens,
			// but give up quickly so a stray match cannot swallow the file.
			continue
		}
		if !opened && i > start+4 {
			return strings.Join(out[:1], "\n")
		}
	}
	// Unbalanced to EOF (truncated file): return what we have.
	return strings.Join(out, "\n")
}

// indentBlock accumulates lines that are blank or indented strictly deeper
// than the header, stopping at the first non-blank line at or above the
// header's indentation.
func indentBlock(lines []string, start int) string {
	header := lines[start]
	headerIndent := indentWidth(header)
	out := []string{header}

	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			out = append(out, line)
			continue
		}
		if indentWidth(line) <= headerIndent {
			break
		}
		out = append(out, line)
	}

	// Trailing blanks belong to whatever follows, not the definition.
	for len(out) > 1 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
