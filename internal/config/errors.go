package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrGetDocumentsFmt       = "Failed to get documents: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrUnauthorized           = "Unauthorized"
	ErrForbidden              = "Forbidden"

	// Editor errors
	ErrDocumentNotFound   = "Document not found"
	ErrNoActiveDocument   = "No document selected"
	ErrSaveInProgress     = "A save is already in progress"
	ErrDocumentMismatch   = "Another document is open in this browser; reload the editor"
	ErrSerializeDocument  = "Could not serialize the document"
	ErrPersistDocument    = "Could not save the document"
	ErrInvalidPlaceholder = "Invalid placeholder request"
	ErrPayloadTooLarge    = "Document payload too large"
	ErrInvalidRequest     = "Invalid request"
	ErrNoSession          = "No editor session"

	// Streaming errors
	ErrDocumentParamRequired = "Document parameter required"
	ErrStreamingUnsupported  = "Streaming unsupported"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
	ErrCreateTempFileFmt     = "Failed to create temp file: %v"

	// Document processing errors
	ErrInitializingDocuments = "Error initializing documents"
	ErrReloadingDocuments    = "Error reloading documents"

	// Challenge errors
	ErrRefreshChallengeFmt = "Failed to refresh challenge"
)
