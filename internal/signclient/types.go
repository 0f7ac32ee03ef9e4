package signclient

import (
	"encoding/json"
	"fmt"
)

// SignUnknown is the service's label for "no sign recognized". It is part of
// the service vocabulary; use RecognizeResult.Known rather than comparing.
const SignUnknown = "unknown"

// MatchType describes how a text-to-sign token was matched.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchStemmed MatchType = "stemmed"
	MatchPartial MatchType = "partial"
)

// Point is a normalized image coordinate (0..1 on both axes).
//
// The service sends points either as [x, y(, z)] arrays or as {"x","y"}
// objects; both decode.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON accepts [x, y, ...] and {"x": .., "y": ..}.
func (p *Point) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) < 2 {
			return fmt.Errorf("signclient: point needs 2 coordinates, got %d", len(arr))
		}
		p.X, p.Y = arr[0], arr[1]
		return nil
	}

	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("signclient: invalid point: %w", err)
	}
	if obj.X == nil || obj.Y == nil {
		return fmt.Errorf("signclient: point missing x or y")
	}
	p.X, p.Y = *obj.X, *obj.Y
	return nil
}

// HandInfo carries landmark data for the overlay.
type HandInfo struct {
	ThumbTip  *Point  `json:"thumb_tip,omitempty"`
	IndexTip  *Point  `json:"index_tip,omitempty"`
	Landmarks []Point `json:"landmarks,omitempty"`
}

// HasPoints reports whether there is anything to draw.
func (h *HandInfo) HasPoints() bool {
	if h == nil {
		return false
	}
	return len(h.Landmarks) > 0 || (h.ThumbTip != nil && h.IndexTip != nil)
}

// GestureSequence is the server-tracked progress of a dynamic gesture.
type GestureSequence struct {
	FrameCount int `json:"frame_count"`
}

// RecognizeResult is the response of /sign-to-text.
type RecognizeResult struct {
	Sign            string           `json:"sign"`
	Confidence      float64          `json:"confidence"`
	HandDetected    bool             `json:"hand_detected"`
	HandInfo        *HandInfo        `json:"hand_info,omitempty"`
	GestureSequence *GestureSequence `json:"gesture_sequence,omitempty"`
}

// Known reports whether Sign is a real vocabulary entry (non-empty and not
// SignUnknown).
func (r *RecognizeResult) Known() bool {
	return r.Sign != "" && r.Sign != SignUnknown
}

// SignToken is one matched token of a text-to-sign translation.
type SignToken struct {
	Sign      string    `json:"sign"`
	ImagePath string    `json:"image_path"`
	MatchType MatchType `json:"match_type,omitempty"`
	Original  string    `json:"original,omitempty"`
}

// TranslateResult is the response of /text-to-sign.
type TranslateResult struct {
	Signs          []SignToken `json:"signs"`
	UnmatchedWords []string    `json:"unmatched_words,omitempty"`
}

// DictionaryEntry is one sign in the service dictionary.
type DictionaryEntry struct {
	Name      string `json:"name" msgpack:"name"`
	ImagePath string `json:"image_path" msgpack:"image_path"`
}

type dictionaryResponse struct {
	Signs []DictionaryEntry `json:"signs"`
}

// StatusResult is the generic {status, message} response.
type StatusResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// errorBody is decoded from every response; a non-empty Error is a failure
// even with a 2xx status.
type errorBody struct {
	Error string `json:"error"`
}

type recognizeRequest struct {
	Base64Image string `json:"base64_image"`
}

type translateRequest struct {
	Text string `json:"text"`
}

type addSignRequest struct {
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
}

type trainingSampleRequest struct {
	Base64Image string `json:"base64_image"`
	GestureName string `json:"gesture_name"`
	SessionID   string `json:"session_id"`
}
