package mymcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/mysqlconn"
	"github.com/rickchristie/mysql-mcp/internal/sqlguard"
	"github.com/rickchristie/mysql-mcp/internal/tunnel"
)

// executeSQL runs an ad-hoc query. The query is validated against the
// safety denylist before any database interaction; a rejected query never
// opens a connection.
func (m *MysqlMcp) executeSQL(ctx context.Context, endpoint tunnel.Endpoint, args map[string]any) string {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "No SQL query provided"
	}

	outcome := sqlguard.Validate(query)
	if !outcome.Allowed {
		m.logger.Warn().Str("reason", outcome.Reason).Msg("query rejected by safety validator")
		return "Query not allowed: " + outcome.Reason
	}

	db, err := m.connector.Open(ctx, endpoint.Host, endpoint.Port, mysqlconn.PurposeSingleCall)
	if err != nil {
		m.logger.Error().Err(err).Msg("execute_sql: connection failed")
		return fmt.Sprintf("SQL error: %v", err)
	}
	defer m.closeQuietly(db)

	// database/sql separates queries from statements up front, where the
	// original driver inspected cursor.description after the fact. The
	// denylist already blocks every mutating verb, so the Exec path only
	// sees session statements like SET or USE.
	if !producesResultSet(query) {
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			m.logger.Error().Err(err).Msg("execute_sql: execution failed")
			return fmt.Sprintf("SQL error: %v", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			m.logger.Warn().Err(err).Msg("execute_sql: rows affected unavailable")
			return "Query executed successfully."
		}
		return fmt.Sprintf("Query executed successfully. Rows affected: %d", affected)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		m.logger.Error().Err(err).Msg("execute_sql: execution failed")
		return fmt.Sprintf("SQL error: %v", err)
	}
	defer rows.Close()

	columns, records, err := collectRows(rows)
	if err != nil {
		m.logger.Error().Err(err).Msg("execute_sql: fetching results failed")
		return fmt.Sprintf("SQL error: %v", err)
	}

	if len(records) == 0 {
		return "Query executed successfully. No results returned."
	}
	return "Query executed successfully. Results:\n" + formatResultRows(columns, records)
}

// producesResultSet reports whether the statement's leading verb yields a
// row set. Leading parentheses are stripped first so the union-branch form
// `(SELECT ...) UNION (SELECT ...)` routes to the query path. CALL is
// treated as row-producing; a procedure that returns nothing comes back
// as an empty result set.
func producesResultSet(query string) bool {
	trimmed := strings.TrimLeft(query, "( \t\r\n")
	fields := strings.Fields(strings.ToUpper(trimmed))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH", "TABLE", "VALUES", "CALL":
		return true
	}
	return false
}

// collectRows drains a result set, normalizing every row to a name-to-value
// map immediately after fetch using the query's declared column order.
// Downstream formatting only ever handles one row shape.
func collectRows(rows *sql.Rows) ([]string, []map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var records []map[string]any
	scan := make([]any, len(columns))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, nil, err
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			v := *(scan[i].(*any))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			record[col] = v
		}
		records = append(records, record)
	}
	return columns, records, rows.Err()
}

// formatResultRows renders rows as one block per row, column values in
// declared order.
func formatResultRows(columns []string, records []map[string]any) string {
	var sb strings.Builder
	for i, record := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Row %d:\n", i+1)
		for _, col := range columns {
			fmt.Fprintf(&sb, "  %s: %s\n", col, formatValue(record[col]))
		}
	}
	return sb.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
