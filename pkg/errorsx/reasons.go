package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonDeviceAccess ReasonCode = "device_access"
	ReasonDeviceStop   ReasonCode = "device_stop"

	ReasonUpload               ReasonCode = "upload"
	ReasonTranscribeSubmit     ReasonCode = "transcribe_submit"
	ReasonTranscribeStatus     ReasonCode = "transcribe_status"
	ReasonTranscribeProcessing ReasonCode = "transcribe_processing"
	ReasonPollingTimeout       ReasonCode = "polling_timeout"

	ReasonSessionInvalidToken    ReasonCode = "session_invalid_token"
	ReasonSessionCompleted       ReasonCode = "session_completed"
	ReasonSessionUnknownQuestion ReasonCode = "session_unknown_question"
	ReasonSessionIncomplete      ReasonCode = "session_incomplete"

	ReasonStoreUnavailable ReasonCode = "store_unavailable"
)
