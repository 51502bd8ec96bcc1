package scenario

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"
)

// budget is a byte allowance shared by the stdout and stderr captures of a
// single process.
type budget struct {
	mu        sync.Mutex
	remaining int
}

func (b *budget) take(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.remaining {
		n = b.remaining
	}
	b.remaining -= n
	return n
}

// capture keeps output until its budget runs out and silently drops the
// rest. It never returns an error, so the child is never blocked or killed
// by a full pipe.
type capture struct {
	buf       bytes.Buffer
	budget    *budget
	truncated bool
}

func (c *capture) Write(p []byte) (int, error) {
	n := c.budget.take(len(p))
	c.buf.Write(p[:n])
	if n < len(p) {
		c.truncated = true
	}
	return len(p), nil
}

// newCaptures returns stdout and stderr writers sharing a total budget.
func newCaptures(total int) (*capture, *capture) {
	b := &budget{remaining: total}
	return &capture{budget: b}, &capture{budget: b}
}

// Snippet limits text to maxLines lines and maxBytes bytes, never splitting
// a UTF-8 sequence. It reports whether anything was cut.
func Snippet(text string, maxBytes, maxLines int) (string, bool) {
	truncated := false

	if maxLines > 0 {
		idx := 0
		for line := 0; line < maxLines; line++ {
			next := strings.IndexByte(text[idx:], '\n')
			if next < 0 {
				idx = len(text)
				break
			}
			idx += next + 1
		}
		if idx < len(text) {
			text = text[:idx]
			truncated = true
		}
	}

	if maxBytes > 0 && len(text) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		truncated = true
	}

	return text, truncated
}
