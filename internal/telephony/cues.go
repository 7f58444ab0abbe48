package telephony

// Cue names the prerecorded audio prompts used for fail-closed responses.
// The caller never hears a technical failure, only one of these.
type Cue string

const (
	CueNumberNotFound     Cue = "number-notfound"
	CueUnableToAssist     Cue = "unable-to-assist"
	CueDatasourceNotFound Cue = "datasource-notfound"
	CueErrorOccurred      Cue = "error-occurred"
)

// CueURL resolves a cue to its static audio asset under the public API URL.
func CueURL(apiURL string, c Cue) string {
	return apiURL + "/static/audio/" + string(c) + ".mp3"
}
