package domain

import "time"

// SyncReport summarizes one sync run. For every run
// Processed == Saved + DuplicatesSkipped + IneligibleSkipped + Errors.
type SyncReport struct {
	SourcePlatform    string
	Processed         int
	Saved             int
	DuplicatesSkipped int
	IneligibleSkipped int
	Errors            int
	Published         int
	Samples           []ClassifiedContent // first 3 saved items in processing order
	Duration          time.Duration
}
