package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/daybook/core/handler"
)

// knownMethods lists the HTTP methods the router dispatches; anything
// else is rejected before route matching.
var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodPatch:   {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodConnect: {},
	http.MethodTrace:   {},
}

// segment is one element of a parsed pattern: a literal, or a {param}
// capture.
type segment struct {
	literal string
	param   string
}

// route is a single entry in the route table.
type route[C handler.Context] struct {
	method   string // empty matches every method
	pattern  string
	segs     []segment
	wildcard bool // trailing /*: the unmatched tail belongs to a mount
	h        handler.HandlerFunc[C]
	sub      http.Handler // mounted subrouter, nil for ordinary routes
}

// parsePattern splits a registration pattern into segments. Parameters
// use {name} syntax and must be unique within the pattern; a bare *
// is allowed only as the final segment.
func parsePattern(pattern string) ([]segment, bool) {
	if pattern == "" || pattern[0] != '/' {
		panic(fmt.Errorf("%w: %q", ErrInvalidPattern, pattern))
	}

	var (
		segs     []segment
		wildcard bool
	)
	seen := make(map[string]struct{})
	raw := strings.Split(strings.Trim(pattern, "/"), "/")
	for i, s := range raw {
		switch {
		case s == "":
			// collapsed slash, nothing to match
		case s == "*":
			if i != len(raw)-1 {
				panic(fmt.Errorf("%w: %q", ErrWildcardPosition, pattern))
			}
			wildcard = true
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
			name := s[1 : len(s)-1]
			if name == "" {
				panic(fmt.Errorf("%w: empty parameter name in %q", ErrInvalidPattern, pattern))
			}
			if _, dup := seen[name]; dup {
				panic(fmt.Errorf("%w: %q in %q", ErrDuplicateParam, name, pattern))
			}
			seen[name] = struct{}{}
			segs = append(segs, segment{param: name})
		default:
			segs = append(segs, segment{literal: s})
		}
	}
	return segs, wildcard
}

// splitPath breaks a request path into segments for matching.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// match reports whether the request path satisfies the route. For
// wildcard routes rest carries the unmatched tail, which mounting uses
// to rewrite the subrequest path.
func (rt *route[C]) match(path []string) (params map[string]string, rest []string, ok bool) {
	if rt.wildcard {
		if len(path) < len(rt.segs) {
			return nil, nil, false
		}
	} else if len(path) != len(rt.segs) {
		return nil, nil, false
	}

	for i, seg := range rt.segs {
		if seg.param != "" {
			if params == nil {
				params = make(map[string]string, len(rt.segs))
			}
			params[seg.param] = path[i]
			continue
		}
		if seg.literal != path[i] {
			return nil, nil, false
		}
	}
	return params, path[len(rt.segs):], true
}

// score ranks competing matches: literal segments beat parameters, and
// exact-length routes beat wildcard prefixes. Ties keep registration
// order.
func (rt *route[C]) score() int {
	s := 0
	for _, seg := range rt.segs {
		if seg.param == "" {
			s += 2
		} else {
			s++
		}
	}
	if !rt.wildcard {
		s++
	}
	return s
}
