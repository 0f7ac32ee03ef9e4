package core

import (
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
)

// Status returns the current service status
func (s *Service) Status() map[string]interface{} {
	s.mu.RLock()
	running := s.isRunning
	var uptime float64
	if !s.started.IsZero() {
		uptime = time.Since(s.started).Seconds()
	}
	s.mu.RUnlock()

	camStatus := s.camera.Status()
	camStats := s.camera.Stats()
	busStats := s.bus.BusStats()
	overlayPoints, overlayAt := s.overlay.Points()

	status := map[string]interface{}{
		"instance_id": s.cfg.InstanceID,
		"uptime_s":    uptime,
		"running":     running,
		"service_url": s.client.BaseURL(),
		"camera": map[string]interface{}{
			"state":               camStatus.State.String(),
			"last_error":          camStatus.LastError,
			"supported":           camStatus.Supported,
			"resolution":          camStats.Resolution,
			"acquisitions":        camStats.Acquisitions,
			"failed_acquisitions": camStats.FailedAcquisitions,
			"captures":            camStats.Captures,
			"capture_misses":      camStats.CaptureMisses,
			"last_frame_age_ms":   camStats.LastFrameAge.Milliseconds(),
			"errors":              camStats.Errors,
		},
		"recognition_loop": samplerStatus(s.sampler.Stats()),
		"training_loop":    samplerStatus(s.recorder.Stats()),
		"recognition":      s.recognition.Snapshot(),
		"translation":      s.translator.Snapshot(),
		"training":         s.recorder.Progress(),
		"overlay": map[string]interface{}{
			"points":     overlayPoints,
			"updated_at": overlayAt,
		},
		"updatebus": map[string]interface{}{
			"published":   busStats.TotalPublished,
			"sent":        busStats.TotalSent,
			"dropped":     busStats.TotalDropped,
			"subscribers": len(busStats.Subscribers),
		},
	}

	if s.emitter != nil {
		emitterStats := s.emitter.Stats()
		status["mqtt"] = map[string]interface{}{
			"broker":    s.cfg.MQTT.Broker,
			"connected": emitterStats.Connected,
			"published": emitterStats.Published,
			"errors":    emitterStats.Errors,
		}
	}

	return status
}

func samplerStatus(st framesampler.SamplerStats) map[string]interface{} {
	return map[string]interface{}{
		"capturing":          st.IsCapturing,
		"processing":         st.IsProcessing,
		"epoch":              st.Epoch,
		"ticks":              st.Ticks,
		"cycles_issued":      st.CyclesIssued,
		"cycles_applied":     st.CyclesApplied,
		"ticks_dropped_busy": st.TicksDroppedBusy,
		"ticks_no_frame":     st.TicksNoFrame,
		"failures":           st.Failures,
		"stale_discarded":    st.StaleDiscarded,
		"last_latency_ms":    st.LastLatency.Milliseconds(),
	}
}
