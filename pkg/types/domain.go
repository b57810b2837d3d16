package types

// Model represents a discoverable gguf model on disk.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: mistral-7b-instruct-v0.1.Q4_0.gguf
	ID string `json:"id"`
	// Human-friendly name.
	Name string `json:"name"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/mistral-7b-instruct-v0.1.Q4_0.gguf
	Path string `json:"path"`
	// Quantization level or variant string, parsed from the file name when present.
	// example: Q4_0
	Quant string `json:"quant,omitempty"`
	// Optional family (e.g., llama, mistral, phi).
	// example: mistral
	Family string `json:"family,omitempty"`
	// Size of the file in bytes.
	SizeBytes int64 `json:"size_bytes"`
}
