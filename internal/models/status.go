package models

/*
Status and option constants used throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// Generation task status constants
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Note status constants
const (
	NoteStatusGenerated = "generated"
	NoteStatusFailed    = "failed"
)

// Document status constants
const (
	DocumentStatusExtracted = "extracted"
	DocumentStatusFailed    = "failed"
)

// Session status constants
const (
	SessionStatusCreated    = "created"
	SessionStatusProcessing = "processing"
	SessionStatusCompleted  = "completed"
)

// Prompt language modifiers
const (
	LanguageEnglish    = "en"
	LanguageIndonesian = "id"
)

// Prompt depth modifiers
const (
	DepthConcise  = "concise"
	DepthBalanced = "balanced"
	DepthInDepth  = "indepth"
)
