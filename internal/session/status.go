package session

import (
	"context"
	"strings"

	"aphangman.ai/internal/catalog"
)

type Status struct {
	Masked    string
	Guessed   string
	Remaining string
}

func (s Status) Lines() []string {
	return []string{s.Masked, "Guessed: " + s.Guessed, "Remaining: " + s.Remaining}
}

// RenderStatus masks the letters of word not yet in acquired and splits the
// alphabet into guessed and remaining, both in alphabetical order.
func RenderStatus(word string, acquired []string) Status {
	have := make(map[string]bool, len(acquired))
	for _, a := range acquired {
		have[a] = true
	}
	cells := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		l := string(word[i])
		if have[l] {
			cells = append(cells, l)
		} else {
			cells = append(cells, "_")
		}
	}
	var guessed, remaining strings.Builder
	for _, r := range catalog.Alphabet {
		if have[string(r)] {
			guessed.WriteRune(r)
		} else {
			remaining.WriteRune(r)
		}
	}
	return Status{
		Masked:    strings.Join(cells, " "),
		Guessed:   guessed.String(),
		Remaining: remaining.String(),
	}
}

// PrintStatus says the current status in chat. Nothing happens before the
// word is known.
func (s *Session) PrintStatus(ctx context.Context) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	word := s.st.word
	acquired := append([]string(nil), s.st.acquired...)
	s.lock.Release(1)

	if word == "" {
		return nil
	}
	s.sayLines(ctx, RenderStatus(word, acquired).Lines())
	return nil
}
