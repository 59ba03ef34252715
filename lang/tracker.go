package lang

// blockKeywords open a block when their directive ends with ':'.
var blockKeywords = map[string]bool{
	"if":      true,
	"elif":    true,
	"else":    true,
	"try":     true,
	"except":  true,
	"finally": true,
	"for":     true,
	"while":   true,
	"with":    true,
	"def":     true,
	"class":   true,
}

// dedentKeywords continue the innermost open block rather than nesting inside
// it.
var dedentKeywords = map[string]bool{
	"elif":    true,
	"else":    true,
	"except":  true,
	"finally": true,
}

// frame is one open block.
type frame struct {
	Keyword string
	Line    int // source line of the directive that opened the block
}

// tracker is the indentation stack of open blocks. Its depth is the
// indentation of generated code.
type tracker struct {
	stack []frame
}

func (t *tracker) push(f frame) { t.stack = append(t.stack, f) }

func (t *tracker) pop() (frame, bool) {
	if len(t.stack) == 0 {
		return frame{}, false
	}

	f := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	return f, true
}

func (t *tracker) depth() int { return len(t.stack) }
