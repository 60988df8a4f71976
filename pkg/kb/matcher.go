package kb

import (
	"strings"
)

// Refusal is returned when nothing in the knowledge base matches.
const Refusal = "I can only answer questions about our business operations."

type Source string

const (
	SourceExact    Source = "exact"
	SourceKeyword  Source = "keyword"
	SourceFallback Source = "fallback"
)

// Topic maps a label (matched against QA questions) to the keywords that select it.
type Topic struct {
	Label    string
	Keywords []string
}

// DefaultTopics is evaluated in declaration order.
var DefaultTopics = []Topic{
	{Label: "business hours", Keywords: []string{"hour", "open", "close", "time", "operating", "when do you"}},
	{Label: "password reset", Keywords: []string{
		"password", "login", "account", "reset", "forgot",
		"recover", "change", "update", "lost", "cant log", "can't log",
		"how do i reset", "how to reset", "how can i reset",
	}},
	{Label: "payment methods", Keywords: []string{"pay", "payment", "credit card", "invoice", "method", "how to pay"}},
	{Label: "customer support", Keywords: []string{"contact", "support", "help", "email", "phone", "reach", "speak to"}},
	{Label: "refund policy", Keywords: []string{"refund", "return", "money back", "guarantee", "cancel", "get money back"}},
}

// Match is the outcome of a lookup.
type Match struct {
	Answer   string
	Source   Source
	Topic    string
	Question string
}

// Matcher answers from a fixed QA table. It is read-only after construction and
// safe for concurrent use.
type Matcher struct {
	pairs     []QAPair
	questions []string
	topics    []Topic
}

func NewMatcher(pairs []QAPair, topics []Topic) *Matcher {
	if topics == nil {
		topics = DefaultTopics
	}
	m := &Matcher{
		pairs:     append([]QAPair(nil), pairs...),
		questions: make([]string, len(pairs)),
		topics:    topics,
	}
	for i, p := range pairs {
		m.questions[i] = strings.ToLower(p.Question)
	}
	return m
}

func (m *Matcher) Pairs() []QAPair {
	return append([]QAPair(nil), m.pairs...)
}

// Match runs exact question containment, then topic keywords, then the refusal.
func (m *Matcher) Match(message string) Match {
	msg := strings.ToLower(message)

	for i, q := range m.questions {
		if strings.Contains(msg, q) {
			return Match{Answer: m.pairs[i].Answer, Source: SourceExact, Question: m.pairs[i].Question}
		}
	}

	padded := " " + msg + " "
	for _, topic := range m.topics {
		if !containsKeyword(padded, topic.Keywords) {
			continue
		}
		label := strings.ToLower(topic.Label)
		for i, q := range m.questions {
			if strings.Contains(q, label) {
				return Match{Answer: m.pairs[i].Answer, Source: SourceKeyword, Topic: topic.Label, Question: m.pairs[i].Question}
			}
		}
	}

	return Match{Answer: Refusal, Source: SourceFallback}
}

func containsKeyword(padded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}
