package session

import (
	"context"
	"errors"
	"fmt"

	"aphangman.ai/internal/catalog"
	"aphangman.ai/internal/protocol"
)

func (s *Session) onRoomInfo(ctx context.Context, ev RoomInfo) error {
	if ev.SeedName == "" {
		s.log.Warn().Msg("room info without seed name")
		return nil
	}
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	prev := s.st.seed
	if prev == "" {
		s.st.seed = ev.SeedName
	}
	s.lock.Release(1)

	if prev != "" && prev != ev.SeedName {
		return s.fail(fmt.Errorf("%w: %q -> %q", ErrSeedMismatch, prev, ev.SeedName))
	}
	s.seedOnce.Do(func() { close(s.seedReady) })
	s.log.Debug().Str("seed", ev.SeedName).Msg("room info")
	return nil
}

func (s *Session) onConnected(ctx context.Context, ev Connected) error {
	sd, err := protocol.ParseSlotData(ev.SlotData)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrConsistency, err))
	}
	if _, err := catalog.ForPuzzle(sd.Word); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrConsistency, err))
	}

	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	if s.st.word != "" && s.st.word != sd.Word {
		s.lock.Release(1)
		return s.fail(ErrPuzzleMismatch)
	}
	s.st.word = sd.Word
	s.st.setObjectives(ev.Missing, ev.Checked)
	s.st.advance(ReadinessAwaitingCatalog)
	outstanding, resolved := len(s.st.outstanding), len(s.st.resolved)
	s.lock.Release(1)

	s.log.Info().
		Int("word_length", len(sd.Word)).
		Int("outstanding", outstanding).
		Int("resolved", resolved).
		Msg("connected")

	if err := s.out.RequestCatalog(ctx, s.cfg.Game); err != nil {
		return fmt.Errorf("request catalog: %w", err)
	}
	return nil
}

func (s *Session) onCatalog(ctx context.Context, ev CatalogReceived) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	known := len(s.st.universe) > 0
	s.lock.Release(1)
	if !known {
		// Connected has not arrived; it requests the catalog again.
		s.log.Debug().Msg("catalog before objectives; dropping")
		return nil
	}

	s.spawn(ctx, "catalog", func(ctx context.Context) error {
		select {
		case <-s.seedReady:
		case <-ctx.Done():
			return nil
		}
		if err := s.installCatalog(ctx, ev.Payload); err != nil {
			return err
		}
		return s.ApplyInboundItems(ctx)
	})
	return nil
}

func (s *Session) installCatalog(ctx context.Context, p catalog.Payload) error {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lock.Release(1)

	maps, err := catalog.Resolve(p, s.st.universe)
	if errors.Is(err, catalog.ErrObjectivesUnknown) {
		s.log.Warn().Err(err).Msg("catalog deferred")
		return nil
	}
	if err != nil {
		return err
	}
	if err := maps.Verify(s.st.word); err != nil {
		return fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	s.st.maps = maps
	s.st.advance(ReadinessReady)
	items, locs := maps.Len()
	s.log.Info().Int("items", items).Int("locations", locs).Str("seed", s.st.seed).Msg("catalog ready")
	return nil
}

func (s *Session) onItemsGranted(ctx context.Context, ev ItemsGranted) error {
	if !s.ledger.apply(ev.Index, ev.Items) {
		s.log.Warn().Int("index", ev.Index).Int("have", s.ledger.len()).Msg("item sequence gap; requesting sync")
		if err := s.out.Sync(ctx); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		return nil
	}
	s.spawn(ctx, "intake", s.ApplyInboundItems)
	return nil
}

func (s *Session) onScoutInfo(ctx context.Context, ev ScoutInfo) error {
	if len(ev.Objectives) == 0 {
		return nil
	}
	// Sent from the reader goroutine so arrivals keep their order.
	first := ev.Objectives[0]
	select {
	case s.scouts <- first:
	default:
		s.log.Warn().Int64("location", first.Location).Msg("scout queue full; dropping")
	}
	return nil
}

func (s *Session) onChat(ctx context.Context, ev ChatMessage) error {
	if !s.isStatusCommand(ev.Text) {
		return nil
	}
	s.spawn(ctx, "status", s.PrintStatus)
	return nil
}
