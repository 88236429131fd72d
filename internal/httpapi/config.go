package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size, including
// multipart uploads. Default is 1 MiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// triggerTimeout bounds how long a run request waits for the control loop to
// accept it.
var triggerTimeout = 5 * time.Second

// SetTriggerTimeout sets the trigger timeout (<=0 restores the default).
func SetTriggerTimeout(d time.Duration) {
	if d <= 0 {
		d = 5 * time.Second
	}
	triggerTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
