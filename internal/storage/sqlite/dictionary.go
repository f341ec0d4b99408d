package sqlite

import (
	"database/sql"

	"complaintbot/internal/domain"
)

// TopDictionaryEntries lists the most frequent values of one kind, ties
// broken lexicographically so equal counts render in a stable order.
func TopDictionaryEntries(db *sql.DB, kind string, limit int) ([]domain.DictionaryEntry, error) {
	if !domain.ValidDictKind(kind) {
		return nil, domain.Validationf("kind", "unknown dictionary kind %q", kind)
	}
	if limit < 1 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT kind, value, freq, last_seen FROM dictionary
		 WHERE kind = ?
		 ORDER BY freq DESC, value ASC
		 LIMIT ?`,
		kind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DictionaryEntry
	for rows.Next() {
		var e domain.DictionaryEntry
		if err := rows.Scan(&e.Kind, &e.Value, &e.Freq, &e.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func GetDictionaryEntry(db *sql.DB, kind, value string) (domain.DictionaryEntry, error) {
	var e domain.DictionaryEntry
	err := db.QueryRow(
		`SELECT kind, value, freq, last_seen FROM dictionary WHERE kind = ? AND value = ?`,
		kind, value,
	).Scan(&e.Kind, &e.Value, &e.Freq, &e.LastSeen)
	if err == sql.ErrNoRows {
		return e, domain.ErrNotFound
	}
	return e, err
}
