package copilot

import "github.com/bytedance/sonic"

// Action is one model-requested operation.
type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Reply is the structured envelope the model is asked to produce.
type Reply struct {
	Reply   string   `json:"reply"`
	Actions []Action `json:"actions"`
}

// ParseReply decodes the action envelope. Models do not always comply
// with the format; anything that is not valid JSON becomes a plain reply
// with no actions.
func ParseReply(text string) Reply {
	var parsed Reply
	if err := sonic.UnmarshalString(text, &parsed); err != nil {
		return Reply{Reply: text}
	}
	if parsed.Reply == "" && parsed.Actions == nil {
		// Valid JSON but not our envelope (e.g. a bare string or array).
		return Reply{Reply: text}
	}
	return parsed
}
