package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL   string        // Base URL of the service
	EventFile string        // Event definition shared with the server
	Workers   int           // Number of concurrent submitters
	Timeout   time.Duration // HTTP request timeout
	Verbose   bool          // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	SubmissionsGenerated int
	SubmissionsSent      int
	SubmissionsLocked    int
	LockRetries          int
	Conflicts            int
	Failed               int
	StandingsChecked     int
	Mismatches           int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
