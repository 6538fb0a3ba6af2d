package voice

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	confidenceMatch    = 0.8
	confidenceHelp     = 0.9
	confidenceFallback = 0.5

	defaultLevel = 5
)

var priorityLevels = map[string]int{
	"urgent": 8,
	"high":   8,
	"medium": 5,
	"low":    2,
}

type rule struct {
	pattern *regexp.Regexp
	build   func(m []string) (Command, float64)
}

const (
	orderRef = `(?:order\s+)?(?:number\s+)?(\d+)`
	station  = `(grill|fryer|salad|expo|bar)`
	status   = `(all|overdue|new|preparing|ready|active)`
)

func orderRule(pattern string, mk func(id string) Command) rule {
	return rule{
		pattern: regexp.MustCompile(pattern),
		build: func(m []string) (Command, float64) {
			return mk(m[1]), confidenceMatch
		},
	}
}

func priorityRule(pattern string, orderGroup, levelGroup int) rule {
	return rule{
		pattern: regexp.MustCompile(pattern),
		build: func(m []string) (Command, float64) {
			level, conf := normalizeLevel(m[levelGroup])
			return SetPriority{OrderID: m[orderGroup], Level: level}, conf
		},
	}
}

func viewRule(pattern string, mk func(v string) Command) rule {
	return rule{
		pattern: regexp.MustCompile(pattern),
		build: func(m []string) (Command, float64) {
			return mk(m[1]), confidenceMatch
		},
	}
}

func bump(id string) Command   { return Bump{OrderID: id} }
func recall(id string) Command { return Recall{OrderID: id} }
func start(id string) Command  { return Start{OrderID: id} }
func show(v string) Command    { return Show{View: v} }
func filter(v string) Command  { return Filter{Criterion: v} }

// rules are evaluated top to bottom and the first match wins. Group order
// is bump, recall, start, priority, show, filter, help.
var rules = []rule{
	orderRule(`\b(?:bump|complete|finish|clear)\s+`+orderRef+`\b`, bump),
	orderRule(`\bmark\s+`+orderRef+`\s+(?:as\s+)?(?:done|ready|complete)\b`, bump),
	orderRule(`\border\s+(?:number\s+)?(\d+)\s+(?:is\s+)?(?:done|ready|complete|finished|up)\b`, bump),

	orderRule(`\b(?:recall|reopen|undo)\s+`+orderRef+`\b`, recall),
	orderRule(`\bbring\s+back\s+`+orderRef+`\b`, recall),

	orderRule(`\b(?:start|begin|fire)\s+`+orderRef+`\b`, start),
	orderRule(`\bworking\s+on\s+`+orderRef+`\b`, start),

	priorityRule(`\bset\s+`+orderRef+`\s+(?:to\s+)?priority\s+(?:to\s+)?(\w+)`, 1, 2),
	priorityRule(`\b`+orderRef+`\s+priority\s+(?:to\s+)?(\w+)`, 1, 2),
	priorityRule(`\bpriority\s+(\w+)\s+(?:for\s+)?`+orderRef+`\b`, 2, 1),
	priorityRule(`\bmake\s+`+orderRef+`\s+(urgent|high|medium|low)\b`, 1, 2),
	{
		pattern: regexp.MustCompile(`\b(?:rush|expedite)\s+` + orderRef + `\b`),
		build: func(m []string) (Command, float64) {
			return SetPriority{OrderID: m[1], Level: priorityLevels["urgent"]}, confidenceMatch
		},
	},

	viewRule(`\bshow\s+(?:me\s+)?(?:the\s+)?(?:orders\s+for\s+)?(table\s+\d+)\b`, show),
	viewRule(`\bshow\s+(?:me\s+)?(?:the\s+)?`+station+`(?:\s+station)?\b`, show),
	viewRule(`\bshow\s+(?:me\s+)?(?:the\s+)?`+status+`(?:\s+orders)?\b`, show),
	viewRule(`\b(?:go|switch)\s+to\s+(?:the\s+)?`+station+`\b`, show),

	viewRule(`\bfilter\s+(?:by\s+)?(?:status\s+)?`+status+`\b`, filter),
	viewRule(`\bfilter\s+(?:by\s+)?(?:station\s+)?`+station+`\b`, filter),
	viewRule(`\b(?:only|just)\s+(new|preparing|ready|overdue)\b`, filter),
	{
		pattern: regexp.MustCompile(`\bclear\s+(?:all\s+)?filters?\b`),
		build: func([]string) (Command, float64) {
			return Filter{Criterion: "all"}, confidenceMatch
		},
	},

	{
		pattern: regexp.MustCompile(`\b(?:help|what\s+can\s+i\s+say|voice\s+commands|list\s+commands)\b`),
		build: func([]string) (Command, float64) {
			return Help{}, confidenceHelp
		},
	},
}

var noise = regexp.MustCompile(`[^a-z0-9]+`)

func normalize(text string) string {
	return strings.TrimSpace(noise.ReplaceAllString(strings.ToLower(text), " "))
}

// Parse interprets a transcribed utterance. It never fails: anything that
// matches no rule is Unknown with zero confidence.
func Parse(text string) Parsed {
	normalized := normalize(text)
	if normalized == "" {
		return Parsed{Command: Unknown{}, OriginalText: text}
	}

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		cmd, conf := r.build(m)
		return Parsed{Command: cmd, Confidence: conf, OriginalText: text}
	}

	return Parsed{Command: Unknown{}, OriginalText: text}
}

// normalizeLevel maps a spoken priority to 0-10. Unrecognized words fall
// back to the default level at reduced confidence.
func normalizeLevel(word string) (int, float64) {
	if level, ok := priorityLevels[word]; ok {
		return level, confidenceMatch
	}
	if n, err := strconv.Atoi(word); err == nil && n >= 0 && n <= 10 {
		return n, confidenceMatch
	}
	return defaultLevel, confidenceFallback
}
