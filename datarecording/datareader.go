package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// QueryParams encapsulates all query parameters
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword
	// Example: "mean > ? AND kind = ?"
	Where string

	// Args holds the arguments for the placeholders in Where
	Args []any

	// Limit is the maximum number of records to return (pagination)
	// Set to 0 for no limit
	Limit int

	// Offset is the number of records to skip (pagination)
	Offset int

	// OrderBy specifies sorting, without the "ORDER BY" keywords
	// Example: "name DESC"
	OrderBy string
}

// DataReader reads back the tables a DataRecorder wrote.
type DataReader interface {
	// MapTable establishes a mapping between a database table and a Go struct
	// type. This mapping is required before querying a table.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns a list of all tables that have been mapped.
	ListTables() []string

	// Query executes a query on a table and returns pointers to new structs
	// of the mapped type.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader
	Close() error
}

type sqlReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
	order   []string
}

// NewReader opens an SQLite file written by a DataRecorder.
func NewReader(filename string) DataReader {
	db, err := sql.Open(string(SQLite), filename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB creates a new DataReader with a given database
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqlReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqlReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("entry %T is not a struct", sampleEntry))
	}

	if _, found := r.typeMap[tableName]; !found {
		r.order = append(r.order, tableName)
	}

	r.typeMap[tableName] = t
}

func (r *sqlReader) ListTables() []string {
	return append([]string(nil), r.order...)
}

func (r *sqlReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	query := "SELECT * FROM " + tableName

	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	totalCount, err := r.queryTotalCount(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

func (r *sqlReader) queryTotalCount(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	var totalCount int

	countQuery := "SELECT COUNT(*) FROM " + tableName

	if params.Where != "" {
		countQuery += " WHERE " + params.Where
	}

	err := r.DB.QueryRowContext(ctx, countQuery, params.Args...).Scan(&totalCount)
	if err != nil {
		return 0, err
	}

	return totalCount, nil
}

// columnName returns the column a struct field is stored in.
func columnName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("structs")
	if !ok {
		return field.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}

	return name
}

func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldMap := make(map[string]int)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.IsExported() {
			fieldMap[columnName(field)] = i
		}
	}

	var results []any

	for rows.Next() {
		raw := make([]any, len(columns))
		targets := make([]any, len(columns))

		for i := range raw {
			targets[i] = &raw[i]
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		structPtr := reflect.New(structType)
		structVal := structPtr.Elem()

		for i, col := range columns {
			idx, ok := fieldMap[col]
			if !ok {
				continue
			}

			if err := assign(structVal.Field(idx), raw[i]); err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
		}

		results = append(results, structPtr.Interface())
	}

	return results, rows.Err()
}

// assign stores a scanned value into a field. NULL becomes NaN for floats
// and the zero value otherwise.
func assign(field reflect.Value, v any) error {
	if v == nil {
		if field.Kind() == reflect.Float32 || field.Kind() == reflect.Float64 {
			field.SetFloat(math.NaN())
		}

		return nil
	}

	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	value := reflect.ValueOf(v)

	switch field.Kind() {
	case reflect.Bool:
		switch x := v.(type) {
		case bool:
			field.SetBool(x)
		case int64:
			field.SetBool(x != 0)
		default:
			return fmt.Errorf("cannot store %T in %s", v, field.Type())
		}
	case reflect.String:
		field.SetString(fmt.Sprint(v))
	default:
		if !value.CanConvert(field.Type()) || value.Kind() == reflect.String {
			return fmt.Errorf("cannot store %T in %s", v, field.Type())
		}

		field.Set(value.Convert(field.Type()))
	}

	return nil
}

func (r *sqlReader) Close() error {
	return r.DB.Close()
}
