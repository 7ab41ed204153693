package api

// CreateVideoRequest is the session start payload. Unknown enum values
// are normalized to defaults rather than rejected.
type CreateVideoRequest struct {
	Topic           string `json:"topic"`
	Hook            string `json:"hook"`
	Fact            string `json:"fact"`
	DurationSeconds int    `json:"durationSeconds"`
	Genre           string `json:"genre"`
	ComedyLevel     string `json:"comedyLevel"`
	Language        string `json:"language"`
	Preview         bool   `json:"preview"`
}

type CreateVideoResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ListVideosResponse struct {
	Videos []string `json:"videos"`
}

type ConfirmResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptimeS"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
