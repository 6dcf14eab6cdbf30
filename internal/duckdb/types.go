package duckdb

import "github.com/tinytelemetry/logreport/internal/model"

// Type aliases re-export model types so store method signatures read
// naturally from callers that only import duckdb.
type RunSummary = model.RunSummary
type URLStat = model.URLStat
type Table = model.Table
type TrendPoint = model.TrendPoint
