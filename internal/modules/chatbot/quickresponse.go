package chatbot

import (
	"strings"

	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
)

// Matcher answers common questions from the catalog without calling a model.
// It holds no mutable state; the same (message, role) always yields the same result.
type Matcher struct {
	catalog *Catalog
}

func NewMatcher(catalog *Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match checks greetings, then the role's rules, then the support rules.
// The first hit wins.
func (m *Matcher) Match(message string, role domain.Role) (string, bool) {
	lower := strings.ToLower(message)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	rc := m.catalog.For(role)

	for _, kw := range m.catalog.GreetingKeywords {
		if strings.Contains(lower, kw) {
			return rc.Greeting, true
		}
	}
	for _, r := range rc.Rules {
		if r.matches(lower) {
			return r.Reply, true
		}
	}
	for _, r := range m.catalog.SupportRules {
		if r.matches(lower) {
			return r.Reply, true
		}
	}
	return "", false
}
