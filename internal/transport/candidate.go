package transport

import (
	"fmt"
	"strings"

	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

// Candidate is the transport-agnostic form of one connectivity candidate as
// it travels through signaling.
type Candidate struct {
	Descriptor     string  `json:"candidate" cbor:"1,keyasint"`
	MediaID        *string `json:"sdpMid,omitempty" cbor:"2,keyasint,omitempty"`
	MediaLineIndex *uint16 `json:"sdpMLineIndex,omitempty" cbor:"3,keyasint,omitempty"`
}

// Equal reports whether both candidates carry the same tuple.
func (c Candidate) Equal(other Candidate) bool {
	if c.Descriptor != other.Descriptor {
		return false
	}
	if (c.MediaID == nil) != (other.MediaID == nil) ||
		(c.MediaID != nil && *c.MediaID != *other.MediaID) {
		return false
	}
	if (c.MediaLineIndex == nil) != (other.MediaLineIndex == nil) ||
		(c.MediaLineIndex != nil && *c.MediaLineIndex != *other.MediaLineIndex) {
		return false
	}
	return true
}

// EncodeCandidate converts an engine-discovered candidate into its tuple form.
func EncodeCandidate(c *webrtc.ICECandidate) Candidate {
	return CandidateFromInit(c.ToJSON())
}

// CandidateFromInit converts an engine candidate init into its tuple form.
// The returned value does not alias init.
func CandidateFromInit(init webrtc.ICECandidateInit) Candidate {
	return Candidate{
		Descriptor:     init.Candidate,
		MediaID:        cloneString(init.SDPMid),
		MediaLineIndex: cloneUint16(init.SDPMLineIndex),
	}
}

// DecodeCandidate rebuilds the engine-native candidate. A descriptor the ICE
// parser rejects yields an error wrapping ErrMalformedSignalingData. An empty
// descriptor is the end-of-candidates marker and passes through unchanged.
func DecodeCandidate(c Candidate) (webrtc.ICECandidateInit, error) {
	if c.Descriptor != "" {
		raw := strings.TrimPrefix(c.Descriptor, "candidate:")
		if _, err := ice.UnmarshalCandidate(raw); err != nil {
			return webrtc.ICECandidateInit{}, fmt.Errorf("%w: candidate %q: %v", ErrMalformedSignalingData, c.Descriptor, err)
		}
	}

	return webrtc.ICECandidateInit{
		Candidate:     c.Descriptor,
		SDPMid:        cloneString(c.MediaID),
		SDPMLineIndex: cloneUint16(c.MediaLineIndex),
	}, nil
}

// MustDecodeCandidate is DecodeCandidate for callers that treat malformed
// signaling data as a fatal defect. It panics instead of returning an error.
func MustDecodeCandidate(c Candidate) webrtc.ICECandidateInit {
	init, err := DecodeCandidate(c)
	if err != nil {
		panic("couldn't deserialize ice candidate: " + err.Error())
	}
	return init
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUint16(n *uint16) *uint16 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
