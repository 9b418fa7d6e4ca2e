package ipc

// Commands understood by the translate screen.
const (
	CommandStatus   = "status"
	CommandStop     = "stop"
	CommandCancel   = "cancel"
	CommandUndo     = "undo"
	CommandClear    = "clear"
	CommandSentence = "sentence"
)

// maxLineBytes caps one JSON line in either direction.
const maxLineBytes = 64 << 10

// Request is one command line sent to the translate screen.
type Request struct {
	Command string `json:"command"`
}

// Response carries the screen's state and sentence after the command ran.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Sentence string `json:"sentence,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
