// Package personalize renders merge fields such as {{ name }} for each
// recipient on a list, using the Liquid template language.
package personalize

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/osteele/liquid"
)

// Recipient is the data a template can reference.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Bindings returns the variables exposed to templates for r.
func (r Recipient) Bindings() map[string]interface{} {
	first := strings.Fields(r.Name)
	firstName := ""
	if len(first) > 0 {
		firstName = first[0]
	}
	_, domain, _ := strings.Cut(r.Email, "@")
	return map[string]interface{}{
		"email":      r.Email,
		"name":       r.Name,
		"first_name": firstName,
		"domain":     domain,
	}
}

// maxCachedTemplates bounds the parsed-template cache. Template text comes
// from API callers, so the cache must not grow with every distinct request.
const maxCachedTemplates = 256

// Engine renders templates. Parsed templates are cached by source text; once
// the cache is full the oldest entry is evicted.
type Engine struct {
	engine *liquid.Engine

	mu    sync.Mutex
	cache map[string]*liquid.Template
	order []string // insertion order, oldest first
}

// NewEngine creates an engine with the recipient filters registered.
func NewEngine() *Engine {
	e := &Engine{
		engine: liquid.NewEngine(),
		cache:  make(map[string]*liquid.Template),
	}
	e.registerFilters()
	return e
}

func (e *Engine) registerFilters() {
	// {{ first_name | default: "there" }}
	e.engine.RegisterFilter("default", func(value interface{}, fallback string) interface{} {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})

	// {{ name | capitalize }}
	e.engine.RegisterFilter("capitalize", func(s string) string {
		return upperFirst(strings.ToLower(s))
	})

	// {{ name | titlecase }}
	e.engine.RegisterFilter("titlecase", func(s string) string {
		words := strings.Fields(strings.ToLower(s))
		for i, w := range words {
			words[i] = upperFirst(w)
		}
		return strings.Join(words, " ")
	})

	// {{ name | first_word }}
	e.engine.RegisterFilter("first_word", func(s string) string {
		if f := strings.Fields(s); len(f) > 0 {
			return f[0]
		}
		return ""
	})
}

// upperFirst upper-cases the first rune of s, leaving the rest untouched.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func (e *Engine) template(src string) (*liquid.Template, error) {
	e.mu.Lock()
	tpl, ok := e.cache[src]
	e.mu.Unlock()
	if ok {
		return tpl, nil
	}

	tpl, err := e.engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cache[src]; !ok {
		if len(e.order) >= maxCachedTemplates {
			oldest := e.order[0]
			e.order = e.order[1:]
			delete(e.cache, oldest)
		}
		e.order = append(e.order, src)
	}
	e.cache[src] = tpl
	return tpl, nil
}

// ClearCache drops every parsed template.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]*liquid.Template)
	e.order = nil
	e.mu.Unlock()
}

// cachedCount reports how many templates are cached.
func (e *Engine) cachedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// Validate reports template syntax errors without rendering.
func (e *Engine) Validate(src string) error {
	_, err := e.template(src)
	return err
}

// Render renders src for one recipient.
func (e *Engine) Render(src string, r Recipient) (string, error) {
	tpl, err := e.template(src)
	if err != nil {
		return "", err
	}
	out, rerr := tpl.RenderString(r.Bindings())
	if rerr != nil {
		return "", fmt.Errorf("render template: %w", rerr)
	}
	return out, nil
}
