package storage

import "errors"

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// Keys written by collaborators outside the profile core. They hold plain
// strings and are not validated here.
const (
	KeySubscriptionPlan = "nextstep-subscription-plan"
	KeyUsername         = "nextstep-username"
)
