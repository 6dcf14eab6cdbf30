package duckdb

import "github.com/tinytelemetry/logreport/internal/model"

// Type aliases re-export the history contracts.
type HistoryWriter = model.HistoryWriter
type HistoryReader = model.HistoryReader

var (
	_ HistoryWriter = (*Store)(nil)
	_ HistoryReader = (*Store)(nil)
)
