package session

import (
	"context"
	"fmt"
)

// checkCompletion fires the goal once every letter of the word is acquired.
// The caller holds the lock.
func (s *Session) checkCompletion(ctx context.Context) error {
	if s.st.completed || s.st.word == "" {
		return nil
	}
	for i := 0; i < len(s.st.word); i++ {
		if !s.st.has(string(s.st.word[i])) {
			return nil
		}
	}
	if err := s.out.ReportGoal(ctx); err != nil {
		return fmt.Errorf("report goal: %w", err)
	}
	s.st.completed = true
	s.say(ctx, "Congratulations! The word is "+s.st.word+"!")
	s.log.Info().Str("word", s.st.word).Msg("goal reached")
	return nil
}
