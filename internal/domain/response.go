package domain

// APIResponse is the uniform envelope returned by every public operation.
// Exactly one of Data and Error is set; Status carries the HTTP-style code
// so that callers inspect the envelope instead of relying on transport
// errors or panics.
type APIResponse[T any] struct {
	Data   *T      `json:"data"`
	Error  *string `json:"error"`
	Status int     `json:"status"`
}
