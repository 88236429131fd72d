package types

import "time"

// RunRequest is the body of POST /runs/upload when sent as JSON.
type RunRequest struct {
	// Path of the image to caption. Relative paths resolve into the images directory.
	// example: /home/user/Pictures/dog.jpg
	Path string `json:"path" example:"/home/user/Pictures/dog.jpg"`
}

// RunAccepted is returned by the run endpoints once a run has started.
type RunAccepted struct {
	// Identifier of the started run.
	// example: 5f1c1a3e-3d0c-4f7a-9a52-2b8f0f3f6a10
	HandleID string `json:"handle_id" example:"5f1c1a3e-3d0c-4f7a-9a52-2b8f0f3f6a10"`
	// Acquisition mode of the run.
	// example: webcam
	Mode string `json:"mode" example:"webcam"`
}

// View is the observable state of the interface.
type View struct {
	// Sequence number of this snapshot; increases with every change.
	// example: 12
	Seq int64 `json:"seq" example:"12"`
	// True while a run is in flight; run actions are disabled.
	// example: false
	Busy bool `json:"busy" example:"false"`
	// Mode of the latest run.
	// example: upload
	Mode string `json:"mode,omitempty" example:"upload"`
	// Run whose state is shown.
	HandleID string `json:"handle_id,omitempty"`
	// Short progress line.
	// example: Operation completed.
	Info string `json:"info" example:"Operation completed."`
	// Caption of the last successful run, or the busy text.
	// example: a dog running on grass
	Output string `json:"output" example:"a dog running on grass"`
	// Error text of the last failed run.
	Error string `json:"error,omitempty"`
	// Failure kind of the last failed run.
	// example: InferenceFailed
	ErrorKind string `json:"error_kind,omitempty" example:"InferenceFailed"`
	// Status bar text.
	// example: Ready
	Status string `json:"status" example:"Ready"`
	// Image currently displayed.
	ImagePath string `json:"image_path,omitempty"`
	// Time of the change.
	UpdatedAt time.Time `json:"updated_at"`
}

// EventsResponse is returned by GET /events.
type EventsResponse struct {
	// View snapshots newer than the requested sequence.
	Events []View `json:"events"`
	// Highest sequence seen so far; pass it back as since.
	// example: 12
	Seq int64 `json:"seq" example:"12"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
