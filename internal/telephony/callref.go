package telephony

import (
	"errors"
	"net/url"
	"strings"
)

// CallRef identifies one in-flight call. It is the key for the per-call
// conversation state in Redis and the refId on persisted call logs.
//
// Components are percent-encoded before joining so a delimiter appearing
// inside a phone number can never collide with another ref.
type CallRef struct {
	Caller  string
	Called  string
	CallSid string
}

const callRefSep = "|"

func (r CallRef) Valid() bool {
	return r.Caller != "" && r.Called != "" && r.CallSid != ""
}

// Key returns the Redis key for this call's conversation state.
func (r CallRef) Key() string {
	return "call_state_" + r.Encode()
}

// Encode serializes the ref for storage and log correlation.
func (r CallRef) Encode() string {
	parts := []string{
		url.QueryEscape(r.Caller),
		url.QueryEscape(r.Called),
		url.QueryEscape(r.CallSid),
	}
	return strings.Join(parts, callRefSep)
}

// DecodeCallRef reverses Encode.
func DecodeCallRef(s string) (CallRef, error) {
	parts := strings.Split(s, callRefSep)
	if len(parts) != 3 {
		return CallRef{}, errors.New("telephony: malformed call ref")
	}
	caller, err := url.QueryUnescape(parts[0])
	if err != nil {
		return CallRef{}, err
	}
	called, err := url.QueryUnescape(parts[1])
	if err != nil {
		return CallRef{}, err
	}
	sid, err := url.QueryUnescape(parts[2])
	if err != nil {
		return CallRef{}, err
	}
	ref := CallRef{Caller: caller, Called: called, CallSid: sid}
	if !ref.Valid() {
		return CallRef{}, errors.New("telephony: incomplete call ref")
	}
	return ref, nil
}
