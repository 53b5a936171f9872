// Package datarecording stores flat structs as rows of database tables.
package datarecording

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	// Drivers the recorder can write through.
	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/glebarez/go-sqlite"
	_ "github.com/mattn/go-sqlite3"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a table whose columns are the exported fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry of the type the table was created with.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the tables created, in creation order.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// An Option configures a DataRecorder.
type Option func(w *sqlWriter)

// WithDriver selects the database/sql driver. The default is SQLite.
func WithDriver(d Driver) Option {
	return func(w *sqlWriter) {
		w.driver = d
	}
}

// WithBatchSize sets how many entries are buffered before they are written.
func WithBatchSize(n int) Option {
	return func(w *sqlWriter) {
		if n <= 0 {
			panic(fmt.Sprintf("batch size %d is not positive", n))
		}

		w.batchSize = n
	}
}

// New creates a DataRecorder that writes to the SQLite file path.sqlite3. An
// empty path picks a unique file name. Existing files are not overwritten.
func New(path string, opts ...Option) DataRecorder {
	w := newWriter(opts)

	if w.driver == ClickHouse {
		panic("use NewClickHouse to record to ClickHouse")
	}

	w.open(path)

	atexit.Register(func() { w.Flush() })

	return w
}

// NewClickHouse creates a DataRecorder that writes to the ClickHouse server
// described by dsn, for example clickhouse://localhost:9000/results.
func NewClickHouse(dsn string, opts ...Option) DataRecorder {
	opts = append(opts[:len(opts):len(opts)], WithDriver(ClickHouse))
	w := newWriter(opts)

	db, err := sql.Open(string(ClickHouse), dsn)
	if err != nil {
		panic(err)
	}

	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB, opts ...Option) DataRecorder {
	w := newWriter(opts)
	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

func newWriter(opts []Option) *sqlWriter {
	w := &sqlWriter{
		driver:    SQLite,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.dialect = dialectOf(w.driver)

	return w
}

type table struct {
	name       string
	structType reflect.Type
	columns    []column
	entries    []any
}

// sqlWriter writes buffered entries through database/sql.
type sqlWriter struct {
	*sql.DB

	lock       sync.Mutex
	driver     Driver
	dialect    dialect
	dbName     string
	tables     map[string]*table
	order      []string
	batchSize  int
	entryCount int
}

func (w *sqlWriter) open(path string) {
	if path == "" {
		path = "flowsim_" + xid.New().String()
	}

	filename := path
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open(string(w.driver), filename)
	if err != nil {
		panic(err)
	}

	logrus.Infof("Database created for recording: %s", filename)

	w.dbName = filename
	w.DB = db
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func columnsOf(sampleEntry any) []column {
	if !structs.IsStruct(sampleEntry) {
		panic(fmt.Sprintf("entry %T is not a struct", sampleEntry))
	}

	names := structs.Names(sampleEntry)
	fields := structs.Fields(sampleEntry)

	if len(fields) == 0 {
		panic(fmt.Sprintf("entry %T has no exported fields", sampleEntry))
	}

	columns := make([]column, 0, len(fields))
	for i, f := range fields {
		if !isAllowedKind(f.Kind()) {
			panic(fmt.Sprintf("field %s of %T has unsupported kind %s",
				f.Name(), sampleEntry, f.Kind()))
		}

		columns = append(columns, column{name: names[i], kind: f.Kind()})
	}

	return columns
}

func (w *sqlWriter) CreateTable(tableName string, sampleEntry any) {
	columns := columnsOf(sampleEntry)

	w.lock.Lock()
	defer w.lock.Unlock()

	if _, exists := w.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	w.mustExecute(w.dialect.createTable(tableName, columns))

	w.tables[tableName] = &table{
		name:       tableName,
		structType: reflect.TypeOf(sampleEntry),
		columns:    columns,
	}
	w.order = append(w.order, tableName)
}

func (w *sqlWriter) InsertData(tableName string, entry any) {
	w.lock.Lock()
	defer w.lock.Unlock()

	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("table %s stores %s, not %T",
			tableName, t.structType, entry))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.flush()
	}
}

func (w *sqlWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	return append([]string(nil), w.order...)
}

func (w *sqlWriter) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.flush()
}

func (w *sqlWriter) flush() {
	if w.entryCount == 0 {
		return
	}

	tx, err := w.Begin()
	if err != nil {
		panic(err)
	}

	for _, name := range w.order {
		t := w.tables[name]
		if len(t.entries) == 0 {
			continue
		}

		w.writeEntries(tx, t)
	}

	err = tx.Commit()
	if err != nil {
		panic(err)
	}

	w.entryCount = 0
}

func (w *sqlWriter) writeEntries(tx *sql.Tx, t *table) {
	stmt, err := tx.Prepare(w.dialect.insert(t.name, t.columns))
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		values := structs.Values(entry)
		for i, v := range values {
			values[i] = w.bind(v)
		}

		_, err := stmt.Exec(values...)
		if err != nil {
			panic(err)
		}
	}

	t.entries = nil
}

// bind stores NaN as NULL in SQLite, which has no NaN.
func (w *sqlWriter) bind(v any) any {
	if w.driver == ClickHouse {
		return v
	}

	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(f)) {
			return nil
		}
	}

	return v
}

func (w *sqlWriter) Close() error {
	w.Flush()

	return w.DB.Close()
}

func (w *sqlWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		logrus.Errorf("Failed to execute: %s", query)
		panic(err)
	}

	return res
}

var _ DataRecorder = (*sqlWriter)(nil)
