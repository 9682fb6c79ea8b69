package models

// PageRequest is the body of PUT /api/pages/:slug. Markdown is a pointer so
// a missing or null field fails validation instead of saving "".
type PageRequest struct {
	Markdown *string `json:"markdown" binding:"required"`
}

type PageResponse struct {
	Markdown string `json:"markdown"`
}

type PreviewResponse struct {
	HTML string `json:"html"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// PageMeta is derived from the markdown at render time and never stored.
type PageMeta struct {
	Title       string
	Description string
}
