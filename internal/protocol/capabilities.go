package protocol

// TTSRequest asks the client to speak text. A nil Volume means the engine
// did not send one.
type TTSRequest struct {
	RequestID string   `json:"requestId"`
	Text      string   `json:"text"`
	Lang      string   `json:"lang"`
	Rate      float64  `json:"rate"`
	Pitch     float64  `json:"pitch"`
	Volume    *float64 `json:"volume,omitempty"`
}

func (r *TTSRequest) ID() string { return r.RequestID }

// TTSResult answers a TTSRequest.
type TTSResult struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// ScriptRequest asks the client to evaluate a script against variables.
type ScriptRequest struct {
	RequestID string         `json:"requestId"`
	Code      string         `json:"code"`
	Variables map[string]any `json:"variables"`
}

func (r *ScriptRequest) ID() string { return r.RequestID }

// ScriptResult answers a ScriptRequest.
type ScriptResult struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	Result    any    `json:"result"`
	Error     string `json:"error,omitempty"`
}

// MusicRequest asks the client to play audio from a URL.
type MusicRequest struct {
	RequestID  string `json:"requestId"`
	AudioURL   string `json:"audioUrl"`
	WaitForEnd bool   `json:"waitForEnd"`
}

func (r *MusicRequest) ID() string { return r.RequestID }

// MusicResult answers a MusicRequest.
type MusicResult struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Input modes of a prompt.
const (
	InputSingle  = "single"
	InputList    = "list"
	InputNumber  = "number"
	InputInteger = "integer"
)

// InputPromptRequest asks the user for a value.
type InputPromptRequest struct {
	RequestID    string   `json:"requestId"`
	VariableName string   `json:"variableName"`
	Title        string   `json:"title"`
	Message      string   `json:"message"`
	DefaultValue string   `json:"defaultValue"`
	InputMode    string   `json:"inputMode"`
	MinValue     *float64 `json:"minValue,omitempty"`
	MaxValue     *float64 `json:"maxValue,omitempty"`
	MaxLength    int      `json:"maxLength,omitempty"`
	Required     *bool    `json:"required,omitempty"`
}

func (r *InputPromptRequest) ID() string { return r.RequestID }

// IsRequired reports whether an empty answer is rejected. Prompts are
// required unless explicitly marked otherwise.
func (r *InputPromptRequest) IsRequired() bool {
	return r.Required == nil || *r.Required
}

// InputPromptResult answers an InputPromptRequest. A nil Value means the
// user cancelled.
type InputPromptResult struct {
	RequestID string  `json:"requestId"`
	Value     *string `json:"value"`
}
