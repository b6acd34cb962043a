// ABOUTME: Startup verification that expected relations and columns exist
// ABOUTME: Reads information_schema and reports drift as SchemaMismatchError

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// schemaName is where the application tables and views live.
const schemaName = "public"

const columnsQuery = `
	SELECT table_name::text AS table_name, column_name::text AS column_name
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = ANY($2::text[])
`

// VerifySchema checks that every relation in expected exists and carries the
// listed columns. Each drifted relation yields its own *SchemaMismatchError;
// they are joined so errors.As finds the first.
func VerifySchema(ctx context.Context, q Querier, expected map[string][]string) error {
	if len(expected) == 0 {
		return nil
	}

	relations := make([]string, 0, len(expected))
	for name := range expected {
		relations = append(relations, name)
	}
	sort.Strings(relations)

	rows, err := q.FetchAll(ctx, columnsQuery, schemaName, relations)
	if err != nil {
		return fmt.Errorf("reading information_schema: %w", err)
	}

	present := make(map[string]map[string]bool, len(relations))
	for _, row := range rows {
		table, _ := row["table_name"].(string)
		column, _ := row["column_name"].(string)
		if present[table] == nil {
			present[table] = make(map[string]bool)
		}
		present[table][column] = true
	}

	var errs []error
	for _, relation := range relations {
		columns, ok := present[relation]
		if !ok {
			errs = append(errs, &SchemaMismatchError{Relation: relation})
			continue
		}
		var missing []string
		for _, col := range expected[relation] {
			if !columns[col] {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, &SchemaMismatchError{Relation: relation, Missing: missing})
		}
	}
	return errors.Join(errs...)
}

// VerifySchema checks the live database against expected.
func (a *Accessor) VerifySchema(ctx context.Context, expected map[string][]string) error {
	return VerifySchema(ctx, a, expected)
}
