package mqtt

import "errors"

// ErrNotConnected is returned when a request is made before the session is up.
var ErrNotConnected = errors.New("mqtt client not connected")

// ErrPublishFailed wraps the last broker error once every retry failed.
var ErrPublishFailed = errors.New("mqtt publish failed")
