package db

// SQL fragments and formats shared by the query files.
const (
	// timeLayout matches SQLite's datetime() output so comparisons work.
	timeLayout = "2006-01-02 15:04:05"

	// sqlWrittenSinceClause filters cache rows by a datetime window.
	sqlWrittenSinceClause = "written_at >= datetime('now', ?)"
)
