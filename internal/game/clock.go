package game

import "time"

// startClockLocked launches the per-round tick loop. One loop per round; a
// tick still in flight when the next interval fires is skipped, not queued.
// Caller must hold s.mu.
func (s *Session) startClockLocked() {
	stop := make(chan struct{})
	s.stopTick = stop

	go func() {
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				if !s.tickBusy.CompareAndSwap(false, true) {
					continue
				}
				s.Tick(now)
				s.tickBusy.Store(false)
			}
		}
	}()
}

// stopClockLocked halts the tick loop if one is running. Caller must hold
// s.mu; the loop never takes s.mu while holding the stop channel, so closing
// under the lock is safe.
func (s *Session) stopClockLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}
