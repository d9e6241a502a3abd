package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/random"
)

type schemaObject struct {
	Type  string `db:"type"`
	Name  string `db:"name"`
	Table string `db:"tbl_name"`
	SQL   string `db:"sql"`
}

const schemaObjectsQuery = `SELECT type, name, tbl_name, sql
FROM sqlite_schema
WHERE type IN ('table', 'index') AND name NOT LIKE 'sqlite_%' AND sql IS NOT NULL
ORDER BY type DESC, name`

// syncSchema makes the database match schemaDefinition with a simple declarative migration.
//
// The definition is applied to a scratch in-memory database and the resulting sqlite_schema is compared with the
// current one. Removed tables are dropped, new tables are created, and tables whose definition changed are rebuilt
// following https://www.sqlite.org/lang_altertable.html#otheralter, keeping the data of the columns that exist in
// both versions. Indexes are recreated whenever their definition differs.
func (db *Database) syncSchema(ctx context.Context, schemaDefinition string) (err error) {
	target, err := loadTargetSchema(ctx, schemaDefinition)
	if err != nil {
		return err
	}

	// Foreign keys cannot be toggled inside a transaction. The read-write pool has a single connection, so the
	// pragma applies to the transaction below.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign keys")
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, errors.Wrap(fkErr, "enable foreign keys"))
		}
	}()

	tx, err := db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = db.syncTables(ctx, tx, target); err != nil {
		return err
	}
	if err = db.syncIndexes(ctx, tx, target); err != nil {
		return err
	}

	var violations []string
	if err = tx.SelectContext(ctx, &violations, `SELECT "table" FROM pragma_foreign_key_check`); err != nil {
		return errors.Wrap(err, "check foreign keys")
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations after migration", slog.Any("tables", violations))
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit migration")
	}
	return nil
}

type targetSchema struct {
	objects map[string]schemaObject
	columns map[string][]string
}

func loadTargetSchema(ctx context.Context, schemaDefinition string) (*targetSchema, error) {
	name, err := random.Letters(20) //nolint:mnd // long enough to avoid collisions
	if err != nil {
		return nil, errors.Wrap(err, "generate scratch database name")
	}
	scratch, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory", name))
	if err != nil {
		return nil, errors.Wrap(err, "open scratch database")
	}
	defer scratch.Close()
	scratch.SetMaxOpenConns(1)

	if _, err = scratch.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "apply schema to scratch database")
	}
	var objects []schemaObject
	if err = scratch.SelectContext(ctx, &objects, schemaObjectsQuery); err != nil {
		return nil, errors.Wrap(err, "query scratch schema")
	}

	target := targetSchema{
		objects: make(map[string]schemaObject, len(objects)),
		columns: make(map[string][]string),
	}
	for _, o := range objects {
		target.objects[o.Type+":"+o.Name] = o
		if o.Type != "table" {
			continue
		}
		var columns []string
		if err = scratch.SelectContext(ctx, &columns, "SELECT name FROM pragma_table_info(?)", o.Name); err != nil {
			return nil, errors.Wrap(err, "query scratch columns", slog.String("table", o.Name))
		}
		target.columns[o.Name] = columns
	}
	return &target, nil
}

func (db *Database) currentObjects(ctx context.Context, tx *sqlx.Tx, objectType string) ([]schemaObject, error) {
	var objects []schemaObject
	if err := tx.SelectContext(ctx, &objects, schemaObjectsQuery); err != nil {
		return nil, errors.Wrap(err, "query current schema")
	}
	filtered := objects[:0]
	for _, o := range objects {
		if o.Type == objectType {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (db *Database) syncTables(ctx context.Context, tx *sqlx.Tx, target *targetSchema) error {
	current, err := db.currentObjects(ctx, tx, "table")
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(current))

	for _, table := range current {
		existing[table.Name] = true
		want, ok := target.objects["table:"+table.Name]
		switch {
		case !ok:
			db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", table.Name))
			if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", table.Name)); err != nil {
				return errors.Wrap(err, "drop table", slog.String("table", table.Name))
			}
		case want.SQL != table.SQL:
			if err = db.rebuildTable(ctx, tx, want, target.columns[table.Name]); err != nil {
				return err
			}
		}
	}

	for key, want := range target.objects {
		if !strings.HasPrefix(key, "table:") || existing[want.Name] {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("table", want.Name))
		if _, err = tx.ExecContext(ctx, want.SQL); err != nil {
			return errors.Wrap(err, "create table", slog.String("table", want.Name))
		}
	}
	return nil
}

// rebuildTable moves the old table aside, creates it with the new definition and copies the shared columns over.
// Creating the table from its original SQL keeps sqlite_schema identical to the definition.
func (db *Database) rebuildTable(ctx context.Context, tx *sqlx.Tx, want schemaObject, wantColumns []string) error {
	var currentColumns []string
	if err := tx.SelectContext(ctx, &currentColumns, "SELECT name FROM pragma_table_info(?)", want.Name); err != nil {
		return errors.Wrap(err, "query current columns", slog.String("table", want.Name))
	}
	var common []string
	for _, column := range currentColumns {
		for _, wanted := range wantColumns {
			if column == wanted {
				common = append(common, fmt.Sprintf("%q", column))
			}
		}
	}
	columns := strings.Join(common, ", ")
	oldName := want.Name + "_migration_old"

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", want.Name), slog.String("columns", columns))
	statements := []string{
		fmt.Sprintf("ALTER TABLE %q RENAME TO %q", want.Name, oldName),
		want.SQL,
	}
	if columns != "" {
		statements = append(statements,
			fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q", want.Name, columns, columns, oldName))
	}
	statements = append(statements, fmt.Sprintf("DROP TABLE %q", oldName))
	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(err, "rebuild table", slog.String("query", statement))
		}
	}
	return nil
}

func (db *Database) syncIndexes(ctx context.Context, tx *sqlx.Tx, target *targetSchema) error {
	current, err := db.currentObjects(ctx, tx, "index")
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(current))
	for _, index := range current {
		if want, ok := target.objects["index:"+index.Name]; ok && want.SQL == index.SQL {
			existing[index.Name] = true
			continue
		}
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP INDEX %q", index.Name)); err != nil {
			return errors.Wrap(err, "drop index", slog.String("index", index.Name))
		}
	}
	for key, want := range target.objects {
		if !strings.HasPrefix(key, "index:") || existing[want.Name] {
			continue
		}
		if _, err = tx.ExecContext(ctx, want.SQL); err != nil {
			return errors.Wrap(err, "create index", slog.String("index", want.Name))
		}
	}
	return nil
}
