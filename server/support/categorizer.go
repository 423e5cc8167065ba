package support

import "strings"

// keywordRule is one weighted pattern in a category's keyword set. Core
// terms carry weight 2, supporting terms weight 1.
type keywordRule struct {
	pattern string
	weight  int
}

// categoryRule binds a category to its keyword set and base priority.
type categoryRule struct {
	category Category
	priority Priority
	keywords []keywordRule
}

// Categorizer assigns a category, priority, and certainty to query text
// using weighted keyword-set matching. Rules live in a data table so each
// can be tested in isolation and extended without new branching.
type Categorizer struct {
	rules   []categoryRule
	urgency []string
}

// NewCategorizer creates a categorizer with the built-in rule table.
func NewCategorizer() *Categorizer {
	return &Categorizer{
		rules: []categoryRule{
			{
				category: CategoryAccount,
				priority: PriorityHigh,
				keywords: []keywordRule{
					{"login", 2}, {"password", 2}, {"account", 2}, {"locked", 2},
					{"signin", 1}, {"signup", 1}, {"authentication", 1}, {"credentials", 1},
				},
			},
			{
				category: CategoryPayment,
				priority: PriorityHigh,
				keywords: []keywordRule{
					{"payment", 2}, {"billing", 2}, {"refund", 2}, {"charge", 2},
					{"transaction", 1}, {"card", 1}, {"money", 1}, {"invoice", 1},
				},
			},
			{
				category: CategoryTechnical,
				priority: PriorityMedium,
				keywords: []keywordRule{
					{"api", 2}, {"integration", 2}, {"technical", 2},
					{"help", 1}, {"support", 1}, {"documentation", 1}, {"guide", 1},
				},
			},
			{
				category: CategoryBug,
				priority: PriorityCritical,
				keywords: []keywordRule{
					{"bug", 2}, {"error", 2}, {"broken", 2}, {"crash", 2},
					{"issue", 1}, {"problem", 1}, {"not working", 1}, {"failed", 1},
				},
			},
			{
				category: CategoryPerformance,
				priority: PriorityMedium,
				keywords: []keywordRule{
					{"slow", 2}, {"performance", 2}, {"timeout", 2},
					{"lag", 1}, {"speed", 1}, {"loading", 1}, {"response time", 1},
				},
			},
			{
				category: CategoryFeature,
				priority: PriorityLow,
				keywords: []keywordRule{
					{"feature", 2}, {"request", 2}, {"enhancement", 2},
					{"improvement", 1}, {"suggestion", 1},
				},
			},
			{
				category: CategoryBattery,
				priority: PriorityMedium,
				keywords: []keywordRule{
					{"battery", 2}, {"drain", 2}, {"charging", 2},
					{"power", 1}, {"screen", 1}, {"device", 1},
				},
			},
			{
				category: CategorySecurity,
				priority: PriorityCritical,
				keywords: []keywordRule{
					{"security", 2}, {"hack", 2}, {"breach", 2},
					{"suspicious", 1}, {"unauthorized", 1}, {"threat", 1},
				},
			},
		},
		urgency: []string{"urgent", "critical", "emergency", "asap", "immediately"},
	}
}

// Categorize scores the text against every category's keyword set. The
// highest raw weighted match wins; certainty is the winner's matched weight
// over its total possible weight, clamped to [0,1]. All-zero scores fall
// back to Other with certainty 0. Urgency terms bump the base priority one
// level.
func (c *Categorizer) Categorize(text string) Categorization {
	lower := strings.ToLower(text)

	best := Categorization{Category: CategoryOther, Priority: PriorityMedium}
	bestScore := 0
	for _, rule := range c.rules {
		matched, total := matchWeight(lower, rule.keywords)
		if matched > bestScore {
			bestScore = matched
			certainty := float64(matched) / float64(total)
			if certainty > 1 {
				certainty = 1
			}
			best = Categorization{
				Category:  rule.category,
				Priority:  rule.priority,
				Certainty: certainty,
			}
		}
	}

	if c.isUrgent(lower) {
		best.Priority = best.Priority.bump()
	}
	return best
}

func (c *Categorizer) isUrgent(lower string) bool {
	for _, term := range c.urgency {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func matchWeight(lower string, keywords []keywordRule) (matched, total int) {
	for _, kw := range keywords {
		total += kw.weight
		if strings.Contains(lower, kw.pattern) {
			matched += kw.weight
		}
	}
	return matched, total
}
