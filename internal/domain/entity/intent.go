package entity

// Intent is the structured interpretation of one customer utterance. It is
// produced by the remote classifier or, when that fails, by the keyword
// fallback; the state machine treats both sources identically.
type Intent struct {
	HasOrigin       bool   `json:"hasOrigin"`
	HasDestination  bool   `json:"hasDestination"`
	OriginText      string `json:"originText,omitempty"`
	DestinationText string `json:"destinationText,omitempty"`
	Category        string `json:"category,omitempty"`
	IsConfirmation  bool   `json:"isConfirmation"`
	IsCancellation  bool   `json:"isCancellation"`
	IsGreeting      bool   `json:"isGreeting"`
}
