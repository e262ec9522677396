package domain

// SDPPayload is the JSON body of the offer/answer exchange.
type SDPPayload struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}
