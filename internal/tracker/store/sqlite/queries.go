package sqlite

// Timestamps are stored as UTC text in the form SQLite's DATETIME('now')
// produces, so fixed-width string comparison orders them correctly.
const timeLayout = "2006-01-02 15:04:05"

const (
	querySelectTypeID = `SELECT rowid FROM event_types WHERE name = ?;`

	queryInsertType = `INSERT INTO event_types (name) VALUES (?);`

	queryInsertEvent = `INSERT INTO events (type, time) VALUES (?, ?);`

	queryLastByType = `SELECT type, MAX(time) FROM events GROUP BY type;`

	queryCountByTypeInRange = `
SELECT type, COUNT(*)
FROM events
WHERE time > ? AND time <= ?
GROUP BY type;`

	queryAllEvents = `SELECT type, time FROM events ORDER BY time, rowid;`
)
