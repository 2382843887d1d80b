// Package classify derives category, monetary value and close date from free text.
//
// Every heuristic is driven by an ordered rule table so new vocabularies can be
// added by passing options instead of editing code.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/contest-crawler/internal/contest"
)

// CategoryRule maps a title pattern to a category. Patterns run against the lower-cased title.
type CategoryRule struct {
	Category contest.Category
	Pattern  *regexp.Regexp
}

// DateRule recognizes one date notation. Parse receives the submatches of Pattern
// and returns the calendar components.
type DateRule struct {
	Name    string
	Pattern *regexp.Regexp
	Parse   func(match []string) (year, month, day int, ok bool)
}

// Classifier holds the rule tables.
type Classifier struct {
	categories []CategoryRule
	dates      []DateRule
	suffix     *regexp.Regexp
	prefix     *regexp.Regexp
	amount     *regexp.Regexp
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithCategoryRules replaces the category table.
func WithCategoryRules(rules []CategoryRule) Option {
	return func(c *Classifier) {
		c.categories = append([]CategoryRule(nil), rules...)
	}
}

// WithExtraCategoryRules appends rules after the current table, ahead of the Autre fallback.
func WithExtraCategoryRules(rules ...CategoryRule) Option {
	return func(c *Classifier) {
		c.categories = append(c.categories, rules...)
	}
}

// WithDateRules replaces the date table.
func WithDateRules(rules []DateRule) Option {
	return func(c *Classifier) {
		c.dates = append([]DateRule(nil), rules...)
	}
}

const space = `[\s\x{00A0}\x{202F}]*`

const number = `(\d{1,3}(?:[ \x{00A0}\x{202F}.,]\d{3})+|\d+)(?:[.,]\d{1,2})?`

// New builds a Classifier seeded with the default tables.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		categories: DefaultCategoryRules(),
		dates:      DefaultDateRules(),
		suffix:     regexp.MustCompile(`(?i)` + number + space + `(?:€|\$|eur(?:os?)?\b|usd\b)`),
		prefix:     regexp.MustCompile(`(?i)(?:€|\$|\beur\b|\busd\b)` + space + number),
		amount:     regexp.MustCompile(number),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = New()

// Default returns the shared classifier built from the default tables.
func Default() *Classifier {
	return defaultClassifier
}

// DefaultCategoryRules returns the built-in keyword table, most specific first.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		rule(contest.CategoryHighTech, `iphone|samsung|ps5|playstation|xbox|switch|pc|ordinateur|écran|casque|airpods|macbook|ipad|console|gaming|rtx|gpu`),
		rule(contest.CategoryVoyage, `voyage|séjour|vol|billet|avion|hôtel|croisière|vacances|week-end|spa|thalasso`),
		rule(contest.CategoryBeaute, `beauté|parfum|cosmétique|maquillage|soin|crème|lancôme|dior|sephora`),
		rule(contest.CategoryMode, `montre|bijou|sac|vêtement|mode|swarovski|fashion`),
		rule(contest.CategoryMaison, `cuisine|robot|thermomix|électroménager|meuble|canapé|fauteuil|maison|jardin|déco|four`),
		rule(contest.CategoryAuto, `voiture|auto|moto|vélo|scooter|pneu`),
		rule(contest.CategoryArgent, `argent|cash|€|\$|chèque|bon d'achat|carte cadeau`),
	}
}

func rule(cat contest.Category, pattern string) CategoryRule {
	return CategoryRule{Category: cat, Pattern: regexp.MustCompile(pattern)}
}

// Category returns the first matching category for title, or Autre.
func (c *Classifier) Category(title string) contest.Category {
	t := strings.ToLower(title)
	for _, r := range c.categories {
		if r.Pattern != nil && r.Pattern.MatchString(t) {
			return r.Category
		}
	}
	return contest.CategoryAutre
}

// Value returns the first amount written next to a currency marker, in whole units.
// It returns 0 when nothing matches or the amount does not fit an int.
func (c *Classifier) Value(text string) int {
	s := c.suffix.FindStringSubmatchIndex(text)
	p := c.prefix.FindStringSubmatchIndex(text)
	var digits string
	switch {
	case s == nil && p == nil:
		return 0
	case p == nil || (s != nil && s[0] <= p[0]):
		digits = text[s[2]:s[3]]
	default:
		digits = text[p[2]:p[3]]
	}
	return toInt(digits)
}

// Amount returns the first number in text regardless of currency markers.
func (c *Classifier) Amount(text string) int {
	m := c.amount.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return toInt(m[1])
}

func toInt(digits string) int {
	var b strings.Builder
	for _, r := range digits {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// EndDate returns the first recognized date in text as YYYY-MM-DD, or "" when
// no rule matches or the date does not exist on the calendar.
func (c *Classifier) EndDate(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, r := range c.dates {
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, month, day, ok := r.Parse(m)
		if !ok {
			continue
		}
		if d, valid := calendarDate(year, month, day); valid {
			return d
		}
	}
	return ""
}

func calendarDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format(time.DateOnly), true
}
