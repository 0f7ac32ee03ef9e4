package internal

import "time"

// Stats returns operational statistics (non-blocking snapshot).
func (s *sampler) Stats() SamplerStats {
	var lastCycleAt time.Time
	if ns := s.lastCycleAt.Load(); ns != 0 {
		lastCycleAt = time.Unix(0, ns)
	}

	return SamplerStats{
		Name:             s.cfg.Name,
		IsCapturing:      s.IsCapturing(),
		IsProcessing:     s.processing.Load(),
		Epoch:            s.epoch.Load(),
		Ticks:            s.ticks.Load(),
		TicksDroppedBusy: s.droppedBusy.Load(),
		TicksNoFrame:     s.noFrame.Load(),
		CyclesIssued:     s.issued.Load(),
		CyclesApplied:    s.applied.Load(),
		Failures:         s.failures.Load(),
		StaleDiscarded:   s.staleDiscarded.Load(),
		LastLatency:      time.Duration(s.lastLatency.Load()),
		LastCycleAt:      lastCycleAt,
	}
}
