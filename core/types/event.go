package types

// Event represents a typed event emitted by an engine during a state
// transition. Attributes carry the flattened payload for indexers.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
