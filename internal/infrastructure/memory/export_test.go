package memory

import "time"

func (s *IdempotencyStore) SetClock(now func() time.Time) { s.now = now }
