package telephony

import (
	"net/http"
	"strings"
)

// InboundForm captures the subset of Twilio voice webhook fields we care
// about. Twilio sends application/x-www-form-urlencoded by default.
//
// Keep it minimal and provider-adapter-only. Routing decisions are not
// made here.
type InboundForm struct {
	CallSid       string
	AccountSid    string
	Caller        string
	Called        string
	To            string
	SpeechResult  string
	CallStatus    string
	CallerState   string
	CallerCountry string
	CallerZip     string
}

func ParseInboundForm(r *http.Request) (InboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return InboundForm{}, err
	}
	f := InboundForm{
		CallSid:       r.PostFormValue("CallSid"),
		AccountSid:    r.PostFormValue("AccountSid"),
		Caller:        normalizePhone(r.PostFormValue("Caller")),
		Called:        normalizePhone(r.PostFormValue("Called")),
		To:            normalizePhone(r.PostFormValue("To")),
		SpeechResult:  strings.TrimSpace(r.PostFormValue("SpeechResult")),
		CallStatus:    r.PostFormValue("CallStatus"),
		CallerState:   r.PostFormValue("CallerState"),
		CallerCountry: r.PostFormValue("CallerCountry"),
		CallerZip:     r.PostFormValue("CallerZip"),
	}
	if f.Caller == "" {
		f.Caller = normalizePhone(r.PostFormValue("From"))
	}
	if f.Called == "" {
		f.Called = f.To
	}
	return f, nil
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}
