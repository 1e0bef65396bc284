package sanitize

import "unicode/utf8"

// MinContentSize is the smallest content budget; smaller positive limits are raised to it.
const MinContentSize = 10000

// sizeGuard counts emitted content runes against a budget.  Once a request does not fit the guard
// is exceeded for good.
type sizeGuard struct {
	limit    int // <=0: unlimited
	used     int
	exceeded bool
}

func newSizeGuard(max int) *sizeGuard {
	return &sizeGuard{limit: clampContentSize(max)}
}

func clampContentSize(max int) int {
	switch {
	case max <= 0:
		return 0
	case max < MinContentSize:
		return MinContentSize
	}
	return max
}

// take charges n runes and returns how many of them fit.
func (g *sizeGuard) take(n int) int {
	if g.exceeded {
		return 0
	}
	if g.limit <= 0 {
		g.used += n
		return n
	}
	if free := g.limit - g.used; n > free {
		g.used = g.limit
		g.exceeded = true
		return free
	}
	g.used += n
	return n
}

// text returns the prefix of s that fits the budget.
func (g *sizeGuard) text(s string) string {
	n := utf8.RuneCountInString(s)
	fit := g.take(n)
	if fit == n {
		return s
	}
	return truncateRunes(s, fit)
}

// attrs charges all attribute values at once, reporting whether they fit.  Nothing is charged when
// they do not.
func (g *sizeGuard) attrs(attrs []Attribute) bool {
	if g.exceeded {
		return false
	}
	n := 0
	for _, a := range attrs {
		n += utf8.RuneCountInString(a.Val)
	}
	if g.limit > 0 && g.used+n > g.limit {
		g.exceeded = true
		return false
	}
	g.used += n
	return true
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
