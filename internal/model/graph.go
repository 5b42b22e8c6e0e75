package model

// Edge is one directed link in the site graph.
type Edge struct {
	// From is the canonical URL of the linking page.
	From string `json:"from"`

	// To is the canonical URL of the link target. It may never have been fetched.
	To string `json:"to"`

	// Type is the link classification.
	Type LinkType `json:"type"`
}
