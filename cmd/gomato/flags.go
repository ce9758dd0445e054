package main

import "time"

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	// TimeUnit is the length of one session minute. Hidden; tests shrink it.
	TimeUnit time.Duration
}

// StartFlags Flag structs to decouple cobra from logic for testing.
type StartFlags struct {
	// Minutes overrides the configured duration when DurationSet is true.
	Minutes     int
	DurationSet bool
	Force       bool
	Wait        time.Duration
}

type CancelFlags struct {
	Wait time.Duration
}

type HistoryFlags struct {
	Limit int
}
