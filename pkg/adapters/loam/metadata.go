package loam

// NodeMetadata is the frontmatter of one node document.
// The document body, when present, becomes the node's "content" (Content
// nodes) or "description" (everything else) unless data already sets it.
type NodeMetadata struct {
	ID string `json:"id" mapstructure:"id"`

	// Type is a component name ("Question") or its integer tag (100).
	Type any `json:"type" mapstructure:"type"`

	Edges []string       `json:"edges" mapstructure:"edges"`
	Data  map[string]any `json:"data" mapstructure:"data"`
}
