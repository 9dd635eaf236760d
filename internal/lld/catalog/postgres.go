package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/qustavo/dotsql"

	"github.com/c360/lld/errors"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// PostgresCatalog implements Catalog against the discovery-rule schema
// (items/item_condition/lld_macro_path), grounded on the query-loading
// pattern of solatis-trapperkeeper's internal/core/db package: SQL lives
// in embedded .sql files, addressed by name via dotsql.
type PostgresCatalog struct {
	db  *sqlx.DB
	dot *dotsql.DotSql
}

// OpenPostgres connects to dsn and loads the embedded named queries.
func OpenPostgres(dsn string) (*PostgresCatalog, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.WrapFatal(err, "PostgresCatalog", "OpenPostgres", "open connection")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.WrapTransient(err, "PostgresCatalog", "OpenPostgres", "ping")
	}

	dot, err := loadQueries()
	if err != nil {
		return nil, errors.WrapFatal(err, "PostgresCatalog", "OpenPostgres", "load queries")
	}

	return &PostgresCatalog{db: db, dot: dot}, nil
}

func loadQueries() (*dotsql.DotSql, error) {
	var combined string
	err := fs.WalkDir(queriesFS, "queries", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		content, err := queriesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		combined += string(content) + "\n"
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dotsql.LoadFromString(combined)
}

// Close releases the underlying connection pool.
func (c *PostgresCatalog) Close() error {
	return c.db.Close()
}

type ruleRow struct {
	ItemID   int64  `db:"itemid"`
	HostID   int64  `db:"hostid"`
	Key      string `db:"key_"`
	State    int    `db:"state"`
	EvalType int    `db:"evaltype"`
	Formula  string `db:"formula"`
	Error    string `db:"error"`
	Lifetime string `db:"lifetime"`
}

// Rule implements RuleReader.
func (c *PostgresCatalog) Rule(ctx context.Context, ruleID int64) (Rule, error) {
	query, err := c.dot.Raw("get-rule")
	if err != nil {
		return Rule{}, errors.WrapFatal(err, "PostgresCatalog", "Rule", "lookup query")
	}
	query = c.db.Rebind(query)

	var row ruleRow
	if err := c.db.GetContext(ctx, &row, query, ruleID); err != nil {
		if err == sql.ErrNoRows {
			return Rule{}, ErrRuleNotFound
		}
		return Rule{}, errors.WrapTransient(err, "PostgresCatalog", "Rule", "query")
	}

	state := StateNormal
	if row.State != 0 {
		state = StateNotSupported
	}

	return Rule{
		ID:           row.ItemID,
		HostID:       row.HostID,
		Key:          row.Key,
		State:        state,
		EvalType:     row.EvalType,
		Formula:      row.Formula,
		LastError:    row.Error,
		LifetimeSpec: row.Lifetime,
	}, nil
}

type conditionRow struct {
	ID       uint64 `db:"item_conditionid"`
	Macro    string `db:"macro"`
	Value    string `db:"value"`
	Operator int    `db:"operator"`
}

// Conditions implements ConditionReader.
func (c *PostgresCatalog) Conditions(ctx context.Context, ruleID int64) ([]ConditionRow, error) {
	query, err := c.dot.Raw("get-conditions")
	if err != nil {
		return nil, errors.WrapFatal(err, "PostgresCatalog", "Conditions", "lookup query")
	}
	query = c.db.Rebind(query)

	var rows []conditionRow
	if err := c.db.SelectContext(ctx, &rows, query, ruleID); err != nil {
		return nil, errors.WrapTransient(err, "PostgresCatalog", "Conditions", "query")
	}

	out := make([]ConditionRow, len(rows))
	for i, r := range rows {
		op := OpRegexpMatch
		if r.Operator != 0 {
			op = OpRegexpNotMatch
		}
		out[i] = ConditionRow{ID: r.ID, Macro: r.Macro, Value: r.Value, Operator: op}
	}
	return out, nil
}

type macroPathRow struct {
	Macro string `db:"lld_macro"`
	Path  string `db:"path"`
}

// MacroPaths implements MacroPathReader.
func (c *PostgresCatalog) MacroPaths(ctx context.Context, ruleID int64) ([]MacroPathRow, error) {
	query, err := c.dot.Raw("get-macro-paths")
	if err != nil {
		return nil, errors.WrapFatal(err, "PostgresCatalog", "MacroPaths", "lookup query")
	}
	query = c.db.Rebind(query)

	var rows []macroPathRow
	if err := c.db.SelectContext(ctx, &rows, query, ruleID); err != nil {
		return nil, errors.WrapTransient(err, "PostgresCatalog", "MacroPaths", "query")
	}

	out := make([]MacroPathRow, len(rows))
	for i, r := range rows {
		out[i] = MacroPathRow{Macro: r.Macro, Path: r.Path}
	}
	return out, nil
}

// UpdateItem implements ItemWriter (spec.md §6's single "items" row
// update, at most touching state and error).
func (c *PostgresCatalog) UpdateItem(ctx context.Context, diff ItemDiff) error {
	var query string
	var err error
	var args []any

	errText := ""
	if diff.Error != nil {
		errText = TruncateError(*diff.Error, maxErrorColumnBytes)
	}

	switch {
	case diff.State != nil && diff.Error != nil:
		query, err = c.dot.Raw("update-item-state-error")
		args = []any{diff.RuleID, int(*diff.State), errText}
	case diff.State != nil:
		query = "UPDATE items SET state = $2 WHERE itemid = $1"
		args = []any{diff.RuleID, int(*diff.State)}
	case diff.Error != nil:
		query, err = c.dot.Raw("update-item-error")
		args = []any{diff.RuleID, errText}
	default:
		return nil
	}
	if err != nil {
		return errors.WrapFatal(err, "PostgresCatalog", "UpdateItem", "lookup query")
	}
	query = c.db.Rebind(query)

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return errors.WrapTransient(err, "PostgresCatalog", "UpdateItem", "exec")
	}
	return nil
}

// maxErrorColumnBytes is the target store's text field length limit
// referenced by spec.md §6.
const maxErrorColumnBytes = 2048

// TruncateError bounds s to limit bytes, appending a truncation marker
// when it exceeds it (spec.md §6's "escaped for the target store's text
// field length limit").
func TruncateError(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const marker = "...(truncated)"
	if limit <= len(marker) {
		return s[:limit]
	}
	return s[:limit-len(marker)] + marker
}
