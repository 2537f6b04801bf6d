package api

// Stable error codes carried in the error envelope. Clients branch on
// these, never on message text.
const (
	CodeValidation          = "validation_error"
	CodeNotFound            = "not_found"
	CodeMissingChunks       = "missing_chunks"
	CodeChecksumMismatch    = "checksum_mismatch"
	CodeInvalidRange        = "invalid_range"
	CodeProvider            = "provider_error"
	CodeUnsupportedProvider = "unsupported_provider"
	CodeUnsupportedKind     = "unsupported_kind"
	CodeInternal            = "internal_error"
)

// ErrorResponse is the envelope every failed request returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// Details carries the structured payload for actionable errors:
	// the missing index list, the mismatched chunk index, the provider.
	Details map[string]interface{} `json:"details,omitempty"`
}
