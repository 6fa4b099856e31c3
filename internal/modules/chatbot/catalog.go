package chatbot

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Rule fires when the lower-cased message contains every All keyword and, if
// Any is set, at least one Any keyword.
type Rule struct {
	Name  string   `yaml:"name"`
	All   []string `yaml:"all"`
	Any   []string `yaml:"any"`
	Reply string   `yaml:"reply"`
}

func (r Rule) matches(lower string) bool {
	if len(r.All) == 0 && len(r.Any) == 0 {
		return false
	}
	for _, kw := range r.All {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, kw := range r.Any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RoleCatalog is everything the assistant says that depends on the caller's role.
type RoleCatalog struct {
	Greeting     string   `yaml:"greeting"`
	Rephrase     string   `yaml:"rephrase"`
	Apology      string   `yaml:"apology"`
	DefaultReply string   `yaml:"default_reply"`
	SystemPrompt string   `yaml:"system_prompt"`
	Fallbacks    []string `yaml:"fallbacks"`
	Rules        []Rule   `yaml:"rules"`
}

// Catalog is loaded once at startup and treated as read-only afterwards.
type Catalog struct {
	GreetingKeywords []string                    `yaml:"greeting_keywords"`
	BasePrompt       string                      `yaml:"base_prompt"`
	SupportChannel   string                      `yaml:"support_channel"`
	Roles            map[domain.Role]RoleCatalog `yaml:"roles"`
	SupportRules     []Rule                      `yaml:"support_rules"`
	PlatformStats    map[string]any              `yaml:"platform_stats"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalogYAML
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %q: %w", p, err)
		}
		raw = b
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultCatalog parses the embedded catalog. It panics if the embedded file is
// broken, which only a bad build can cause.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) normalize() {
	lowerAll := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	normRules := func(rules []Rule) {
		for i := range rules {
			rules[i].All = lowerAll(rules[i].All)
			rules[i].Any = lowerAll(rules[i].Any)
		}
	}
	c.GreetingKeywords = lowerAll(c.GreetingKeywords)
	normRules(c.SupportRules)
	for role, rc := range c.Roles {
		normRules(rc.Rules)
		c.Roles[role] = rc
	}
}

func (c *Catalog) Validate() error {
	if len(c.GreetingKeywords) == 0 {
		return fmt.Errorf("catalog: no greeting keywords")
	}
	for _, role := range []domain.Role{domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin} {
		rc, ok := c.Roles[role]
		if !ok {
			return fmt.Errorf("catalog: missing role %q", role)
		}
		switch {
		case strings.TrimSpace(rc.Greeting) == "":
			return fmt.Errorf("catalog: role %q has no greeting", role)
		case strings.TrimSpace(rc.Rephrase) == "":
			return fmt.Errorf("catalog: role %q has no rephrase reply", role)
		case strings.TrimSpace(rc.Apology) == "":
			return fmt.Errorf("catalog: role %q has no apology", role)
		case strings.TrimSpace(rc.DefaultReply) == "":
			return fmt.Errorf("catalog: role %q has no default reply", role)
		case len(rc.Fallbacks) == 0:
			return fmt.Errorf("catalog: role %q has an empty fallback pool", role)
		}
		for _, f := range rc.Fallbacks {
			if strings.TrimSpace(f) == "" {
				return fmt.Errorf("catalog: role %q has a blank fallback", role)
			}
		}
		for _, r := range rc.Rules {
			if strings.TrimSpace(r.Reply) == "" {
				return fmt.Errorf("catalog: rule %q has no reply", r.Name)
			}
		}
	}
	for _, r := range c.SupportRules {
		if strings.TrimSpace(r.Reply) == "" {
			return fmt.Errorf("catalog: support rule %q has no reply", r.Name)
		}
	}
	return nil
}

// For returns the role's entry; unknown roles get the student entry.
func (c *Catalog) For(role domain.Role) RoleCatalog {
	return c.Roles[role.OrDefault()]
}
