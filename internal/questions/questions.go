// Package questions holds the technical question bank and the per-candidate queue assembly.
package questions

import (
	"strings"
)

const (
	// DefaultKey names the fallback list used when no declared skill matches.
	DefaultKey = "default"
	// PerSkill is the number of questions taken from each matched skill.
	PerSkill = 2
	// MaxQueueLength caps the number of questions asked in one interview.
	MaxQueueLength = 5
)

// Bank maps a lowercase skill token to its ordered questions.
type Bank map[string][]string

// DefaultBank returns the built-in question bank.
func DefaultBank() Bank {
	return Bank{
		"python": {
			"Explain the difference between `list` and `tuple` in Python.",
			"What are decorators in Python and how are they used?",
			"How does memory management work in Python?",
			"What is the difference between `deepcopy` and `copy`?",
		},
		"javascript": {
			"What is the difference between `let`, `const`, and `var`?",
			"Explain the concept of closures in JavaScript.",
			"How does the Event Loop work?",
			"What is the difference between `==` and `===`?",
		},
		"react": {
			"What are React Hooks and why do we use them?",
			"Explain the Virtual DOM and how it improves performance.",
			"What is the difference between State and Props?",
			"How do you handle side effects in React components?",
		},
		"sql": {
			"What is the difference between INNER JOIN and LEFT JOIN?",
			"Explain ACID properties in databases.",
			"What is normalization and why is it important?",
			"How do you optimize a slow SQL query?",
		},
		"java": {
			"What is the difference between an Interface and an Abstract Class?",
			"Explain the concept of Polymorphism in Java.",
			"How does Garbage Collection work in Java?",
			"What are the different types of memory areas allocated by JVM?",
		},
		"node": {
			"What is the Event Loop in Node.js?",
			"Explain the difference between callbacks, promises, and async/await.",
			"How do you handle errors in Node.js?",
			"What is middleware in Express.js?",
		},
		"typescript": {
			"What are the benefits of using TypeScript over JavaScript?",
			"Explain generics in TypeScript.",
			"What is the difference between `interface` and `type`?",
			"How does TypeScript's type inference work?",
		},
		DefaultKey: {
			"Can you describe a challenging technical problem you solved recently?",
			"How do you stay updated with the latest technologies?",
			"What is your preferred development methodology (Agile, Scrum, etc.)?",
			"Describe a time you had to debug a complex issue.",
		},
	}
}

// Lookup returns the questions for a skill. The caller lowercases the token.
func (b Bank) Lookup(skill string) ([]string, bool) {
	qs, ok := b[skill]
	return qs, ok
}

// Default returns the fallback list.
func (b Bank) Default() []string {
	return b[DefaultKey]
}

// ParseSkills splits a comma separated tech stack into trimmed, lowercased tokens.
// Empty tokens are kept so the stored tech stack reflects exactly what was typed.
func ParseSkills(input string) []string {
	parts := strings.Split(input, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		skills = append(skills, strings.ToLower(strings.TrimSpace(p)))
	}
	return skills
}

// BuildQueue assembles the interview questions for the given skills: the first
// PerSkill questions of each known skill in input order, the default list when
// nothing matched, truncated to MaxQueueLength.
func (b Bank) BuildQueue(skills []string) []string {
	var queue []string
	for _, skill := range skills {
		if skill == "" {
			continue
		}
		qs, ok := b.Lookup(skill)
		if !ok {
			continue
		}
		n := PerSkill
		if len(qs) < n {
			n = len(qs)
		}
		queue = append(queue, qs[:n]...)
	}

	if len(queue) == 0 {
		queue = append(queue, b.Default()...)
	}

	if len(queue) > MaxQueueLength {
		queue = queue[:MaxQueueLength]
	}
	return queue
}
