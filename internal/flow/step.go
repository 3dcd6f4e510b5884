// Package flow implements the scripted intake conversation: a fixed sequence of
// profile prompts followed by a bounded set of technical questions.
package flow

import "fmt"

// Step is the position of a conversation in the intake script.
type Step int

const (
	// StepGreeting is the zero value: the conversation has not been started.
	StepGreeting Step = iota
	StepName
	StepEmail
	StepPhone
	StepExperience
	StepPosition
	StepLocation
	StepTechStack
	StepQuestions
	// StepClosing is terminal.
	StepClosing
)

var stepNames = map[Step]string{
	StepGreeting:   "GREETING",
	StepName:       "NAME",
	StepEmail:      "EMAIL",
	StepPhone:      "PHONE",
	StepExperience: "EXPERIENCE",
	StepPosition:   "POSITION",
	StepLocation:   "LOCATION",
	StepTechStack:  "TECH_STACK",
	StepQuestions:  "QUESTIONS",
	StepClosing:    "CLOSING",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// MarshalText renders the step by name in JSON.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Step) UnmarshalText(b []byte) error {
	v, err := ParseStep(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStep returns the step with the given name.
func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}
