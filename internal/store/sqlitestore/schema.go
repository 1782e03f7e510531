package sqlitestore

import "fmt"

// collectionSchema creates the table backing one collection. Documents are
// stored as canonical Extended JSON; experiment_id is lifted into its own
// indexed column because every query the registry issues filters on it.
func collectionSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]q (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id TEXT NULL,
    doc           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS %[2]q ON %[1]q(experiment_id);
`, table, "idx_"+table+"_experiment_id")
}
