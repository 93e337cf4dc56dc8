package rate

import "errors"

// ErrRateLimited is returned once an identifier or address is over budget.
var ErrRateLimited = errors.New("too many failed logins")

// ErrRedisUnavailable wraps every Redis failure. Callers decide whether to fail
// open or closed.
var ErrRedisUnavailable = errors.New("rate: redis unavailable")
