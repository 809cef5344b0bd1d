package store

// currentSchemaVersion is stored in PRAGMA user_version.
// 1 - study_sessions, runtime_logs, temp_sessions
const currentSchemaVersion = 1

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS study_sessions (
		id TEXT PRIMARY KEY,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		repetitions INTEGER NOT NULL CHECK (repetitions > 0),
		label TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_study_sessions_end_time ON study_sessions(end_time)`,

	`CREATE TABLE IF NOT EXISTS runtime_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level INTEGER NOT NULL,
		message TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runtime_logs_timestamp ON runtime_logs(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_runtime_logs_level ON runtime_logs(level)`,

	`CREATE TABLE IF NOT EXISTS temp_sessions (
		id TEXT PRIMARY KEY,
		start_time TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		repetitions INTEGER NOT NULL,
		label TEXT NOT NULL,
		repetition_index INTEGER NOT NULL CHECK (repetition_index > 0)
	)`,
}

// Tables lists the collections the schema creates.
var Tables = []string{"study_sessions", "runtime_logs", "temp_sessions"}
