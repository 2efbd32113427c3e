// Package flow provides a client for the LangFlow flow-execution API and the
// wire representations of its run requests and responses.
package flow

// Input and output types understood by the run endpoint.
const (
	TypeChat = "chat"
	TypeText = "text"
)

// RunRequest is the JSON body posted to /lf/{workspace}/api/v1/run/{flow}.
type RunRequest struct {
	InputValue string         `json:"input_value"` // The text handed to the flow
	InputType  string         `json:"input_type"`  // "chat" or "text"
	OutputType string         `json:"output_type"` // "chat" or "text"
	Tweaks     map[string]any `json:"tweaks"`      // Per-component overrides, usually empty
}

// RunOptions overrides the defaults used by Run.
type RunOptions struct {
	InputType  string
	OutputType string
	Tweaks     map[string]any
}

func newRunRequest(input string, opts RunOptions) RunRequest {
	req := RunRequest{
		InputValue: input,
		InputType:  opts.InputType,
		OutputType: opts.OutputType,
		Tweaks:     opts.Tweaks,
	}
	if req.InputType == "" {
		req.InputType = TypeChat
	}
	if req.OutputType == "" {
		req.OutputType = TypeChat
	}
	if req.Tweaks == nil {
		req.Tweaks = map[string]any{}
	}

	return req
}
