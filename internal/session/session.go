package session

import "time"

// StudySession is a completed run of one or more study repetitions.
type StudySession struct {
	ID              string    `json:"id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Repetitions     int       `json:"repetitions"`
	Label           string    `json:"label"`
}

// Duration is the total study time of the session, breaks excluded.
func (s StudySession) Duration() time.Duration {
	return time.Duration(s.DurationMinutes*s.Repetitions) * time.Minute
}

// TempSession marks a repetition that has started but not yet finished.
// A row left behind at startup means the previous process died mid-run.
type TempSession struct {
	ID              string    `json:"id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Repetitions     int       `json:"repetitions"`
	Label           string    `json:"label"`
	RepetitionIndex int       `json:"repetition_index"`
}

// LogEntry is one persisted runtime log record.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}
