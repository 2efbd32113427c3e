package flow

// RunResponse is the body returned by a successful run. Only the first reply
// text is consumed; the remaining fields are kept for callers of RunFlow.
type RunResponse struct {
	SessionID string      `json:"session_id,omitempty"`
	Outputs   []RunOutput `json:"outputs"`
}

// RunOutput is one entry of the top-level outputs array.
type RunOutput struct {
	Inputs  map[string]any `json:"inputs,omitempty"`
	Outputs []ResultData   `json:"outputs"`
}

// ResultData is one component result inside a RunOutput.
type ResultData struct {
	Outputs *ResultOutputs `json:"outputs"`
}

// ResultOutputs holds the named outputs of a component.
type ResultOutputs struct {
	Message *OutputMessage `json:"message"`
}

// OutputMessage wraps the chat message produced by a chat output component.
type OutputMessage struct {
	Message *MessageBody `json:"message"`
}

// MessageBody carries the reply text.
type MessageBody struct {
	Text   *string `json:"text"`
	Sender string  `json:"sender,omitempty"`
}

// ReplyText returns outputs[0].outputs[0].outputs.message.message.text or a
// ResponseShapeError naming the first missing level.
func (r *RunResponse) ReplyText() (string, error) {
	if r == nil || len(r.Outputs) == 0 {
		return "", ResponseShapeError{Path: "outputs[0]"}
	}
	if len(r.Outputs[0].Outputs) == 0 {
		return "", ResponseShapeError{Path: "outputs[0].outputs[0]"}
	}

	result := r.Outputs[0].Outputs[0]
	switch {
	case result.Outputs == nil:
		return "", ResponseShapeError{Path: "outputs[0].outputs[0].outputs"}
	case result.Outputs.Message == nil:
		return "", ResponseShapeError{Path: "outputs[0].outputs[0].outputs.message"}
	case result.Outputs.Message.Message == nil:
		return "", ResponseShapeError{Path: "outputs[0].outputs[0].outputs.message.message"}
	case result.Outputs.Message.Message.Text == nil:
		return "", ResponseShapeError{Path: "outputs[0].outputs[0].outputs.message.message.text"}
	}

	return *result.Outputs.Message.Message.Text, nil
}

// ErrorResponse is the error body returned by the proxy when it cannot reach
// the flow service.
type ErrorResponse struct {
	Error string `json:"error"`
}
