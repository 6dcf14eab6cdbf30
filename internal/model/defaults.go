package model

import "time"

// Shared defaults used by the CLI, the analyzer and the HTTP API.
const (
	DefaultReportSize     = 1000
	DefaultReportDir      = "./reports"
	DefaultLogDir         = "./log"
	DefaultErrorThreshold = 10.0 // percent of bad lines

	// DefaultLogPattern captures the 8-digit date and the optional compression suffix.
	DefaultLogPattern = `^nginx-access-ui\.log-(\d{8})(\.gz)?$`

	// DefaultURLPattern captures the token after a quoted HTTP method.
	DefaultURLPattern = `"[A-Z]+\s(\S+)`

	// DefaultTimePattern captures the trailing whitespace-delimited number.
	DefaultTimePattern = `(?:^|\s)([\d.]+)$`

	DefaultPlaceholder  = "$table_json"
	DefaultMaxLineSize  = 1024 * 1024 // 1MB
	DefaultQueryTimeout = 30 * time.Second
)
