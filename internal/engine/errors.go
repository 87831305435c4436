package engine

import "fmt"

// AppError is a caller-visible failure. Code and Status drive the HTTP
// layer; only Message crosses the wire, inside the response envelope.
type AppError struct {
	Code    string
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func InvalidIdentifierError(name string) *AppError {
	return NewAppError("INVALID_IDENTIFIER", 400, fmt.Sprintf("Invalid identifier: %s", name))
}

func TableNotFoundError(table string) *AppError {
	return NewAppError("TABLE_NOT_FOUND", 404, fmt.Sprintf("Table not found: %s", table))
}

func RecordNotFoundError(table string, id int64) *AppError {
	return NewAppError("RECORD_NOT_FOUND", 404, fmt.Sprintf("Record %d not found in %s", id, table))
}

func ProtectedRecordError() *AppError {
	return NewAppError("PROTECTED_RECORD", 403, "The bootstrap admin account cannot be deleted")
}

func ProtectedTableError(table string) *AppError {
	return NewAppError("PROTECTED_TABLE", 403, fmt.Sprintf("Table %s is reserved and cannot be dropped", table))
}

func LastAdminError() *AppError {
	return NewAppError("LAST_ADMIN", 403, "Cannot delete the last admin account")
}

func UsernameTakenError(username string) *AppError {
	return NewAppError("USERNAME_TAKEN", 409, fmt.Sprintf("Username already taken: %s", username))
}

// AuthFailedError is deliberately identical for unknown usernames and wrong
// passwords so callers cannot probe for account existence.
func AuthFailedError() *AppError {
	return NewAppError("AUTH_FAILED", 401, "Invalid username or password")
}

// NoTokenError and InvalidTokenError carry distinct internal codes but the
// same wire message, so tampering, expiry and a missing header are
// indistinguishable to the caller.
func NoTokenError() *AppError {
	return NewAppError("NO_TOKEN", 401, "Invalid or missing token")
}

func InvalidTokenError() *AppError {
	return NewAppError("INVALID_TOKEN", 401, "Invalid or missing token")
}

func InvalidPayloadError(msg string) *AppError {
	return NewAppError("INVALID_PAYLOAD", 400, msg)
}

// StorageError hides the underlying failure from the caller; the full
// detail is logged server-side at the executor boundary.
func StorageError() *AppError {
	return NewAppError("STORAGE_ERROR", 500, "Storage operation failed")
}
