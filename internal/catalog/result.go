package catalog

// Pagination is derived from the remote response headers when present
type Pagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Result is the normalized outcome of a remote catalog call. The client
// never returns Go errors past its boundary; callers must check OK before
// touching Data.
type Result[T any] struct {
	OK         bool
	Data       T
	Pagination *Pagination
	Err        string
	Code       int // HTTP status of the failure, 0 when the transport failed
}

// Ok wraps a successful response
func Ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

// OkPaged wraps a successful response carrying pagination headers
func OkPaged[T any](data T, p *Pagination) Result[T] {
	return Result[T]{OK: true, Data: data, Pagination: p}
}

// Fail wraps a failed response
func Fail[T any](code int, msg string) Result[T] {
	return Result[T]{Err: msg, Code: code}
}

// NotFound reports whether the remote system answered 404
func (r Result[T]) NotFound() bool {
	return !r.OK && r.Code == 404
}
