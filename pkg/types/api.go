package types

// Target is the record read from stdin on every invocation. Both fields are
// optional; a missing key or a JSON null leaves the field empty.
type Target struct {
	// Name of the chat user the message came from.
	// example: alice
	TargetUsername string `json:"targetUsername"`
	// The chat message to fact-check or roast.
	// example: the earth is flat
	TargetMessage string `json:"targetMessage"`
}
