package session

import "context"

func (s *Session) logScout(ctx context.Context, sc ScoutedObjective) {
	ev := s.log.Info().Int64("location", sc.Location).Int64("item", sc.Item).Int("player", sc.Player)
	if err := s.lock.Acquire(ctx, 1); err == nil {
		if m := s.st.maps; m != nil {
			if name, ok := m.LocationName(sc.Location); ok {
				ev = ev.Str("objective", name)
			}
			if name, ok := m.ItemName(sc.Item); ok {
				ev = ev.Str("item_name", name)
			}
		}
		s.lock.Release(1)
	}
	ev.Msg("scouted objective")
}
