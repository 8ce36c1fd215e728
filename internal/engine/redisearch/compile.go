package redisearch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/vecbridge/internal/engine"
)

// compileQuery lowers the engine query tree into FT.SEARCH query syntax.
// Scalar values drive the clause form: strings, booleans, and dates compile
// to TAG clauses, numbers to NUMERIC ranges, matching how createIndex maps
// the fields.
func compileQuery(q engine.Query) (string, error) {
	if q == nil {
		return "*", nil
	}
	switch n := q.(type) {
	case *engine.MatchAll:
		return "*", nil

	case *engine.Term:
		return compileTerm(n.Field, n.Value)

	case *engine.Terms:
		return compileTerms(n)

	case *engine.Range:
		return compileRange(n)

	case *engine.Exists:
		return "-ismissing(@" + n.Field + ")", nil

	case *engine.Match:
		return compileMatch(n), nil

	case *engine.Bool:
		return compileBool(n)
	}
	return "", fmt.Errorf("unknown query node %T", q)
}

func compileBool(b *engine.Bool) (string, error) {
	var parts []string

	for _, sub := range b.Must {
		s, err := compileGrouped(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	if len(b.Should) > 0 {
		alts := make([]string, 0, len(b.Should))
		for _, sub := range b.Should {
			s, err := compileGrouped(sub)
			if err != nil {
				return "", err
			}
			alts = append(alts, s)
		}
		parts = append(parts, "("+strings.Join(alts, " | ")+")")
	}

	for _, sub := range b.MustNot {
		s, err := compileNegated(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

// compileGrouped parenthesizes composite sub-queries so operator precedence
// cannot leak between siblings.
func compileGrouped(q engine.Query) (string, error) {
	s, err := compileQuery(q)
	if err != nil {
		return "", err
	}
	if _, ok := q.(*engine.Bool); ok {
		return "(" + s + ")", nil
	}
	return s, nil
}

// compileNegated inverts a sub-query. Exists inverts to its ismissing form
// directly; a double minus is not valid query syntax.
func compileNegated(q engine.Query) (string, error) {
	if e, ok := q.(*engine.Exists); ok {
		return "ismissing(@" + e.Field + ")", nil
	}
	s, err := compileQuery(q)
	if err != nil {
		return "", err
	}
	return "-(" + s + ")", nil
}

func compileTerm(field string, value any) (string, error) {
	if tag, ok := tagValue(value); ok {
		return "@" + field + ":{" + tagEscaper.Replace(tag) + "}", nil
	}
	if num, ok := numericValue(value); ok {
		return fmt.Sprintf("@%s:[%s %s]", field, num, num), nil
	}
	return "", fmt.Errorf("field %s: cannot compile equality on %T", field, value)
}

func compileTerms(t *engine.Terms) (string, error) {
	if len(t.Values) == 0 {
		return "", errors.New("field " + t.Field + ": empty value set")
	}

	// Homogeneous tag sets compile to one multi-value tag clause.
	tags := make([]string, 0, len(t.Values))
	allTags := true
	for _, v := range t.Values {
		tag, ok := tagValue(v)
		if !ok {
			allTags = false
			break
		}
		tags = append(tags, tagEscaper.Replace(tag))
	}
	if allTags {
		return "@" + t.Field + ":{" + strings.Join(tags, " | ") + "}", nil
	}

	alts := make([]string, 0, len(t.Values))
	for _, v := range t.Values {
		s, err := compileTerm(t.Field, v)
		if err != nil {
			return "", err
		}
		alts = append(alts, s)
	}
	return "(" + strings.Join(alts, " | ") + ")", nil
}

func compileRange(r *engine.Range) (string, error) {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT != nil {
		num, ok := numericValue(r.GT)
		if !ok {
			return "", rangeErr(r.Field, r.GT)
		}
		minBound = "(" + num
	} else if r.GTE != nil {
		num, ok := numericValue(r.GTE)
		if !ok {
			return "", rangeErr(r.Field, r.GTE)
		}
		minBound = num
	}

	if r.LT != nil {
		num, ok := numericValue(r.LT)
		if !ok {
			return "", rangeErr(r.Field, r.LT)
		}
		maxBound = "(" + num
	} else if r.LTE != nil {
		num, ok := numericValue(r.LTE)
		if !ok {
			return "", rangeErr(r.Field, r.LTE)
		}
		maxBound = num
	}

	return fmt.Sprintf("@%s:[%s %s]", r.Field, minBound, maxBound), nil
}

func rangeErr(field string, v any) error {
	return fmt.Errorf("field %s: range bounds must be numeric, got %T", field, v)
}

func compileMatch(m *engine.Match) string {
	return "@" + m.Field + ":(" + escapeQuery(m.Text) + ")"
}

// tagValue reports how a value appears inside a TAG clause. Dates are tagged
// over their RFC 3339 serialization, matching the JSON body.
func tagValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	}
	return "", false
}

func numericValue(v any) (string, bool) {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32), true
	}
	return "", false
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
