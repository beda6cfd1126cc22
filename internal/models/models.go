package models

import "time"

// Session represents one document-processing session. Documents, clusters
// and generated notes all hang off a session.
type Session struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Document holds the extracted text of one source document. Upload and
// OCR/extraction happen outside this service; documents arrive with their
// text already extracted.
type Document struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Filename      string    `json:"filename"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Cluster is a named topic grouping a subset of a session's documents.
// SourceMapping lists document filenames in the order their text should be
// concatenated; an empty mapping means "use every document in the session".
type Cluster struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	SourceMapping []string  `json:"source_mapping"`
	OrderIndex    int       `json:"order_index"`
	CreatedAt     time.Time `json:"created_at"`
}

// Note is one generated Cornell note. A cluster holds at most one current
// note; regeneration replaces any prior note for the cluster.
type Note struct {
	ID              string    `json:"id"`
	ClusterID       string    `json:"cluster_id"`
	MarkdownContent string    `json:"markdown_content"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
