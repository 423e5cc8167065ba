package support

import (
	"regexp"
	"sort"
	"strings"
)

// tagPatterns maps a tag to the terms that imply it. Checked by containment
// against the lowered text; one hit is enough to attach the tag.
var tagPatterns = map[string][]string{
	"technical":    {"api", "integration", "code", "technical", "programming", "development"},
	"account":      {"login", "password", "account", "user", "profile", "authentication"},
	"payment":      {"payment", "billing", "charge", "refund", "transaction", "money"},
	"bug":          {"bug", "error", "broken", "crash", "issue", "problem"},
	"performance":  {"slow", "performance", "timeout", "lag", "speed", "loading"},
	"feature":      {"feature", "request", "enhancement", "improvement"},
	"security":     {"security", "hack", "breach", "suspicious", "unauthorized"},
	"mobile":       {"mobile", "phone", "app", "ios", "android", "device"},
	"web":          {"website", "browser", "web", "online", "internet"},
	"urgent":       {"urgent", "critical", "emergency", "asap", "immediately"},
	"battery":      {"battery", "charge", "power", "drain", "charging"},
	"ui":           {"interface", "ui", "ux", "design", "layout", "button"},
	"data":         {"data", "export", "import", "file", "download", "upload"},
	"notification": {"notification", "alert", "email", "message", "reminder"},
}

var positiveCues = []string{
	"thanks", "thank you", "great", "good", "awesome", "excellent", "fixed",
	"resolved", "success", "working", "satisfied", "love", "perfect",
	"amazing", "helpful",
}

var negativeCues = []string{
	"bad", "terrible", "broken", "error", "issue", "problem", "not working",
	"can't", "cannot", "fail", "failed", "fails", "crash", "crashes", "slow",
	"worst", "angry", "upset", "frustrated", "hate", "delay", "delayed",
	"refund",
}

var tagStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"can": true, "this": true, "that": true, "these": true, "those": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true,
	"they": true, "me": true, "him": true, "her": true, "us": true,
	"them": true, "my": true, "your": true, "what": true, "how": true,
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9\s]`)

// ExtractTags returns the pattern tags matching the text plus up to five of
// its most frequent content words, deduplicated and sorted.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	seen := map[string]bool{}

	for tag, terms := range tagPatterns {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				seen[tag] = true
				break
			}
		}
	}
	for _, word := range topContentWords(lower, 5) {
		seen[word] = true
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// AnalyzeSentiment counts positive and negative cue terms; the larger count
// wins, ties are neutral.
func AnalyzeSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, cue := range positiveCues {
		if strings.Contains(lower, cue) {
			pos++
		}
	}
	for _, cue := range negativeCues {
		if strings.Contains(lower, cue) {
			neg++
		}
	}
	switch {
	case neg > pos && neg >= 1:
		return SentimentNegative
	case pos > neg && pos >= 1:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

func topContentWords(lower string, n int) []string {
	cleaned := nonWordRe.ReplaceAllString(lower, " ")
	counts := map[string]int{}
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 || tagStopWords[word] {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if n < len(words) {
		words = words[:n]
	}
	return words
}
