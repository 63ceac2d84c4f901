package session

import (
	"context"
	"fmt"
)

// ApplyInboundItems runs one intake pass over the item ledger. Safe to call
// from any number of triggers at once: passes serialize on the session lock
// and each record is applied exactly once.
func (s *Session) ApplyInboundItems(ctx context.Context) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lock.Release(1)

	if s.st.readiness != ReadinessReady || s.st.maps == nil {
		s.log.Debug().Stringer("readiness", s.st.readiness).Msg("intake deferred")
		return nil
	}

	applied := 0
	for _, rec := range s.ledger.snapshot() {
		if _, ok := s.st.processed[rec]; ok {
			continue
		}
		letter, ok := s.st.maps.ItemName(rec.Item)
		if !ok {
			return fmt.Errorf("%w: id %d at index %d", ErrUnknownItem, rec.Item, rec.Index)
		}
		s.st.processed[rec] = struct{}{}
		s.st.acquire(letter)
		applied++

		positions := s.st.positions(letter)
		unlocked := 0
		for _, pos := range positions {
			for _, id := range s.st.maps.LocationsAt(pos) {
				if s.st.markPending(id) {
					unlocked++
				}
			}
		}
		s.log.Debug().
			Str("letter", letter).
			Int("index", rec.Index).
			Ints("positions", positions).
			Int("unlocked", unlocked).
			Msg("item applied")

		if len(positions) > 0 {
			s.say(ctx, "Yes, the word contains at least one "+letter+"!")
		} else {
			s.say(ctx, "Sorry, but the word doesn't contain the letter "+letter+".")
		}
		s.sayLines(ctx, RenderStatus(s.st.word, s.st.acquired).Lines())
	}

	if err := s.flushPending(ctx); err != nil {
		return err
	}
	if applied > 0 {
		s.log.Debug().Int("applied", applied).Int("outstanding", len(s.st.outstanding)).Msg("intake pass")
	}
	return s.checkCompletion(ctx)
}

// flushPending reports the pending batch. The batch stays pending if the
// send fails, so the next pass retries it.
func (s *Session) flushPending(ctx context.Context) error {
	if len(s.st.pending) == 0 {
		return nil
	}
	batch := append([]int64(nil), s.st.pending...)
	if err := s.out.ReportObjectives(ctx, batch); err != nil {
		return fmt.Errorf("report objectives: %w", err)
	}
	s.st.resolve(batch)
	s.log.Info().Ints64("locations", batch).Int("outstanding", len(s.st.outstanding)).Msg("objectives reported")
	return nil
}
