package prompt

import (
	"fmt"
	"strconv"
	"sync"
)

// Scripted answers prompts from a fixed list. It is meant for tests and
// non-interactive runs; once the answers are used up every prompt returns
// ErrClosed.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	Asked   []string
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next(label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, label)
	if len(s.answers) == 0 {
		return "", ErrClosed
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func (s *Scripted) Confirm(question string, defaultYes bool) (bool, error) {
	answer, err := s.next(question)
	if err != nil {
		return false, err
	}
	switch answer {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (s *Scripted) Input(label string) (string, error) {
	return s.next(label)
}

func (s *Scripted) Secret(label string) (string, error) {
	return s.next(label)
}

func (s *Scripted) Number(label string, minValue, maxValue int) (int, error) {
	for {
		answer, err := s.next(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= minValue && n <= maxValue {
			return n, nil
		}
	}
}

// Remaining reports how many answers have not been consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *Scripted) String() string {
	return fmt.Sprintf("scripted prompter (%d answers left)", s.Remaining())
}
