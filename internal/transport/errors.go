package transport

import "fmt"

// HTTPError describes a non-2xx REST response by status and body. The venue
// clients report non-2xx responses as types.ExchangeError, not HTTPError.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// RateLimitError is returned when a KeyPool has no key available that isn't
// currently cooling down.
type RateLimitError struct {
	Venue string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: no API key available, all keys cooling down", e.Venue)
}
