// Package framesampler turns a frame source into a fixed-rate stream of
// remote calls with at most one call in flight.
//
// Philosophy: "Skip ticks, never queue." A slow remote service lowers the
// effective rate; it never builds a backlog.
//
// # Cycle
//
//	tick ──► token free? ──no──► drop (TicksDroppedBusy++)
//	             │yes
//	             ▼
//	        Sample() ──none──► release token (TicksNoFrame++)
//	             │frame
//	             ▼
//	   Process(ctx ≤ CallTimeout) ──err──► log, release token
//	             │apply
//	             ▼
//	   epoch unchanged? ──no──► discard (StaleDiscarded++)
//	             │yes
//	             ▼
//	          apply() ──► release token
//
// The in-flight token is a channel of depth one: taking it is a non-blocking
// send, releasing it a receive. It is released on every path, so a failed or
// timed-out call never wedges the sampler.
//
// # Epoch fencing
//
// StopCapture advances the epoch. Calls issued before it still complete, but
// their results are discarded, so state cleared after a stop is not
// repopulated by a late response.
//
// # Usage
//
//	s, err := framesampler.New(framesampler.Config{Name: "recognition"}, camera, worker)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.StartCapture(); err != nil {
//	    return err
//	}
//	...
//	s.StopCapture()
package framesampler
