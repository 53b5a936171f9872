package datarecording

import (
	"fmt"
	"reflect"
	"strings"
)

// Driver names a database/sql driver the recorder can write through.
type Driver string

// Supported drivers.
const (
	// SQLite is the pure Go SQLite driver.
	SQLite Driver = "sqlite"

	// SQLite3 is the cgo SQLite driver.
	SQLite3 Driver = "sqlite3"

	// ClickHouse writes to a ClickHouse server.
	ClickHouse Driver = "clickhouse"
)

type column struct {
	name string
	kind reflect.Kind
}

// dialect knows the SQL flavor of one driver.
type dialect interface {
	createTable(name string, columns []column) string
	insert(name string, columns []column) string
}

func dialectOf(d Driver) dialect {
	switch d {
	case SQLite, SQLite3:
		return sqliteDialect{}
	case ClickHouse:
		return clickhouseDialect{}
	default:
		panic(fmt.Sprintf("unsupported driver %q", d))
	}
}

type sqliteDialect struct{}

func (sqliteDialect) createTable(name string, columns []column) string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, c.name+" "+sqliteType(c.kind))
	}

	return "CREATE TABLE " + name + " (\n\t" + strings.Join(defs, ", \n\t") + "\n);"
}

func (sqliteDialect) insert(name string, columns []column) string {
	marks := make([]string, len(columns))
	for i := range marks {
		marks[i] = "?"
	}

	return "INSERT INTO " + name + " VALUES (" + strings.Join(marks, ", ") + ")"
}

func sqliteType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

type clickhouseDialect struct{}

func (clickhouseDialect) createTable(name string, columns []column) string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, c.name+" "+clickhouseType(c.kind))
	}

	return "CREATE TABLE IF NOT EXISTS " + name + " (\n\t" +
		strings.Join(defs, ",\n\t") +
		"\n) ENGINE = MergeTree() ORDER BY tuple()"
}

func (clickhouseDialect) insert(name string, _ []column) string {
	return "INSERT INTO " + name
}

func clickhouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	default:
		return "String"
	}
}
