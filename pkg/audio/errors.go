package audio

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// LoadError represents a failure to turn an audio file into samples
type LoadError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeUnsupportedRate = "UNSUPPORTED_RATE"
	ErrCodeDecoding        = "DECODING_FAILED"
)

// NewLoadError creates a new load error
func NewLoadError(path, code, message string, cause error) *LoadError {
	return &LoadError{
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
