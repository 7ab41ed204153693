package app

// Event is one progress update on a session's stream. SceneIndex is
// 1-based so zero values can be omitted from the wire format.
type Event struct {
	Step        string `json:"step"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	SceneIndex  int    `json:"sceneIndex,omitempty"`
	TotalScenes int    `json:"totalScenes,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
	Data        any    `json:"data,omitempty"`
}

// Event statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Event steps, in pipeline order.
const (
	StepScript       = "script"
	StepPreviewReady = "preview_ready"
	StepImages       = "images"
	StepAudio        = "audio"
	StepClips        = "clips"
	StepAssembly     = "assembly"
	StepUpload       = "upload"
	StepComplete     = "complete"
)

// ProgressSink receives progress events from the orchestrator.
type ProgressSink interface {
	Publish(sessionID string, event Event)
}
