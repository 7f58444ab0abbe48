package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary: Play, Gather,
// Dial and Hangup. Every rendered response carries exactly one terminal
// verb (Hangup or Dial) or re-arms a Gather, never both.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlDial struct {
	XMLName xml.Name  `xml:"Dial"`
	Number  string    `xml:"Number,omitempty"`
	Sip     *twimlSip `xml:"Sip,omitempty"`
}

type twimlSip struct {
	URI string `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       string   `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Play          *twimlPlay
}

// VoiceAction describes the provider boundary response for one webhook turn.
type VoiceAction string

const (
	// ActionPlayHangup plays an audio cue and ends the call.
	ActionPlayHangup VoiceAction = "play_hangup"
	// ActionPlayGather plays a prompt inside a speech gather and waits for input.
	ActionPlayGather VoiceAction = "play_gather"
	// ActionPlayDial plays a prompt then hands the call to a human number.
	ActionPlayDial VoiceAction = "play_dial"
)

// VoiceResponse is the provider-agnostic result rendered to TwiML.
type VoiceResponse struct {
	Action VoiceAction

	// AudioURL is the synthesized or prerecorded prompt to play.
	AudioURL string

	// GatherAction is the webhook URL speech results are posted to.
	GatherAction string
	// TimeoutSeconds and SpeechTimeout control the gather window.
	// SpeechTimeout accepts seconds or "auto".
	TimeoutSeconds int
	SpeechTimeout  string

	// DialNumber is the escalation target for ActionPlayDial.
	DialNumber string
}

// RenderTwiML maps a VoiceResponse to a TwiML document.
func RenderTwiML(res VoiceResponse) (string, error) {
	if strings.TrimSpace(res.AudioURL) == "" {
		return "", errors.New("telephony: audio url required")
	}

	var r twimlResponse
	switch res.Action {
	case ActionPlayHangup:
		r.Verbs = append(r.Verbs, twimlPlay{URL: res.AudioURL}, twimlHangup{})
	case ActionPlayDial:
		if strings.TrimSpace(res.DialNumber) == "" {
			return "", errors.New("telephony: dial number required for dial action")
		}
		d := twimlDial{}
		if strings.HasPrefix(strings.ToLower(res.DialNumber), "sip:") {
			d.Sip = &twimlSip{URI: res.DialNumber}
		} else {
			d.Number = res.DialNumber
		}
		r.Verbs = append(r.Verbs, twimlPlay{URL: res.AudioURL}, d)
	case ActionPlayGather:
		if strings.TrimSpace(res.GatherAction) == "" {
			return "", errors.New("telephony: gather action url required")
		}
		g := twimlGather{
			Input:         "speech",
			Action:        res.GatherAction,
			Method:        "POST",
			SpeechTimeout: res.SpeechTimeout,
			Play:          &twimlPlay{URL: res.AudioURL},
		}
		if res.TimeoutSeconds > 0 {
			g.Timeout = strconv.Itoa(res.TimeoutSeconds)
		}
		r.Verbs = append(r.Verbs, g)
	default:
		return "", errors.New("telephony: unknown voice action")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

