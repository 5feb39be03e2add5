// Package store is a small reflection based mapper over a sqlite database.
//
// Records describe their columns with struct tags:
//
//	column:"name"      column name (defaults to the lower cased field name)
//	dbtype:"TEXT"      column type; fields without a dbtype are not persisted
//	primary:"true"     part of the (possibly compound) primary key
//	index:"true"       create a secondary index on the column
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/richard-senior/footy/internal/logger"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

// Persistable is implemented by every record stored through a DB
type Persistable interface {
	TableName() string
	PrimaryKey() map[string]any
}

// DB is a handle on one sqlite database file
type DB struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens (creating if necessary) the sqlite database at path.
// Use ":memory:" for a private in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database initialized successfully", path)
	return &DB{path: path, db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Path returns the location the database was opened from
func (d *DB) Path() string {
	return d.path
}

/////////////////////////////////////////////////////////////////////////
////// Schema
/////////////////////////////////////////////////////////////////////////

// CreateTable creates the table and indexes for a record type if they do not exist
func (d *DB) CreateTable(obj Persistable) error {
	tableName := obj.TableName()
	createSQL := createTableSQL(obj, tableName)

	logger.Debug("Creating table with SQL", createSQL)

	if _, err := d.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	for _, query := range indexSQL(obj, tableName) {
		logger.Debug("Creating index with SQL", query)
		if _, err := d.db.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

type column struct {
	name    string
	dbtype  string
	primary bool
	index   bool
	value   reflect.Value
}

// columns walks the persisted fields of a struct (or pointer to struct) in declaration order
func columns(obj any) []column {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		dbtype := f.Tag.Get("dbtype")
		if dbtype == "" {
			continue
		}
		name := f.Tag.Get("column")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		cols = append(cols, column{
			name:    name,
			dbtype:  dbtype,
			primary: f.Tag.Get("primary") == "true",
			index:   f.Tag.Get("index") == "true",
			value:   v.Field(i),
		})
	}
	return cols
}

func createTableSQL(obj any, tableName string) string {
	var defs, primaryKeys []string
	for _, c := range columns(obj) {
		defs = append(defs, fmt.Sprintf("%s %s", c.name, c.dbtype))
		if c.primary {
			primaryKeys = append(primaryKeys, c.name)
		}
	}
	if len(primaryKeys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(defs, ", "))
}

func indexSQL(obj any, tableName string) []string {
	var out []string
	for _, c := range columns(obj) {
		if !c.index {
			continue
		}
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", tableName, c.name, tableName, c.name))
	}
	return out
}

/////////////////////////////////////////////////////////////////////////
////// Writes
/////////////////////////////////////////////////////////////////////////

// Save inserts the record, or replaces the row with the same primary key
func (d *DB) Save(obj Persistable) error {
	tableName := obj.TableName()
	var names, placeholders []string
	var values []any
	for _, c := range columns(obj) {
		names = append(names, c.name)
		placeholders = append(placeholders, "?")
		values = append(values, c.value.Interface())
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	logger.Debug("Save SQL", query)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.db.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to save into %s: %w", tableName, err)
	}
	return nil
}

// Delete removes the row matching the record's primary key
func (d *DB) Delete(obj Persistable) error {
	where, values := whereClause(obj.PrimaryKey())
	_, err := d.DeleteWhere(obj, where, values...)
	return err
}

// DeleteWhere removes every row of the record's table matching the clause and returns the count
func (d *DB) DeleteWhere(obj Persistable, where string, args ...any) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tableName := obj.TableName()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, where)
	logger.Debug("Delete SQL", query)

	res, err := d.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

/////////////////////////////////////////////////////////////////////////
////// Reads
/////////////////////////////////////////////////////////////////////////

// Load fills obj from the row matching its primary key, returning ErrNotFound when absent
func (d *DB) Load(obj Persistable) error {
	tableName := obj.TableName()
	cols := columns(obj)
	where, values := whereClause(obj.PrimaryKey())

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columnList(cols), tableName, where)
	logger.Debug("Load SQL", query)

	err := d.db.QueryRow(query, values...).Scan(destinations(cols)...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", tableName, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// Query selects rows of one table. The zero Query selects every row.
type Query struct {
	// Where is a SQL condition with ? placeholders for Args
	Where string
	Args  []any
	// OrderBy must name one of the record's columns
	OrderBy string
	Desc    bool
	// Limit caps the row count when positive
	Limit int
}

func (q Query) sql(cols []column, tableName string) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columnList(cols), tableName)
	args := append([]any(nil), q.Args...)

	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	if q.OrderBy != "" {
		if !hasColumn(cols, q.OrderBy) {
			return "", nil, fmt.Errorf("cannot order %s by unknown column %q", tableName, q.OrderBy)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args, nil
}

// Find returns the rows of T's table selected by q
func Find[T any, P interface {
	*T
	Persistable
}](d *DB, q Query) ([]*T, error) {
	var zero T
	tableName := P(&zero).TableName()

	query, args, err := q.sql(columns(&zero), tableName)
	if err != nil {
		return nil, err
	}
	logger.Debug("Find SQL", query)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	var results []*T
	for rows.Next() {
		obj := new(T)
		if err := rows.Scan(destinations(columns(obj))...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, obj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

func hasColumn(cols []column, name string) bool {
	for _, c := range cols {
		if c.name == name {
			return true
		}
	}
	return false
}

func columnList(cols []column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

func destinations(cols []column) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c.value.Addr().Interface()
	}
	return out
}

// whereClause builds an AND clause from a key map. Columns are sorted so the SQL is stable.
func whereClause(key map[string]any) (string, []any) {
	names := make([]string, 0, len(key))
	for k := range key {
		names = append(names, k)
	}
	sort.Strings(names)

	conditions := make([]string, len(names))
	values := make([]any, len(names))
	for i, k := range names {
		conditions[i] = fmt.Sprintf("%s = ?", k)
		values[i] = key[k]
	}
	return strings.Join(conditions, " AND "), values
}
