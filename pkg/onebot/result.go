package onebot

// CallStatus is the outcome of a normalized API call.
type CallStatus string

// Call outcomes.
const (
	CallOK     CallStatus = "ok"
	CallFailed CallStatus = "failed"
)

// Normalized result codes. Platform errors use the 34xxx range, transport
// errors the 33xxx range, matching the OneBot12 retcode convention.
const (
	RetOK            = 0
	RetPlatformError = 34000
	RetNetworkError  = 33001
)

// CallResult is the normalized response envelope for one platform API call.
// It is created fresh per call and never persisted.
type CallResult struct {
	Status    CallStatus `json:"status"`
	RetCode   int        `json:"retcode"`
	Data      any        `json:"data"`
	MessageID string     `json:"message_id"`
	Message   string     `json:"message"`
	Raw       any        `json:"telegram_raw"`
	Echo      string     `json:"echo,omitempty"`
}

// OK reports whether the call succeeded.
func (r CallResult) OK() bool {
	return r.Status == CallOK
}
