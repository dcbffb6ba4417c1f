package mymcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rickchristie/mysql-mcp/internal/mysqlconn"
	"github.com/rickchristie/mysql-mcp/internal/tunnel"
)

const tableColumnsSQL = `
SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION
`

const allColumnsSQL = `
SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE()
ORDER BY TABLE_NAME, ORDINAL_POSITION
`

// columnDesc is one catalog row, in physical column order.
type columnDesc struct {
	Table    string
	Name     string
	DataType string
	Nullable string // "YES" / "NO"
	Default  sql.NullString
	Comment  string
}

// schemaInfo describes one table's columns, or every table grouped by name
// when no table is given.
func (m *MysqlMcp) schemaInfo(ctx context.Context, endpoint tunnel.Endpoint, args map[string]any) string {
	tableName := strings.TrimSpace(stringArg(args, "table_name"))

	db, err := m.connector.Open(ctx, endpoint.Host, endpoint.Port, mysqlconn.PurposeSingleCall)
	if err != nil {
		m.logger.Error().Err(err).Msg("get_schema_info: connection failed")
		return fmt.Sprintf("Schema error: %v", err)
	}
	defer m.closeQuietly(db)

	var rows *sql.Rows
	if tableName != "" {
		rows, err = db.QueryContext(ctx, tableColumnsSQL, tableName)
	} else {
		rows, err = db.QueryContext(ctx, allColumnsSQL)
	}
	if err != nil {
		m.logger.Error().Err(err).Msg("get_schema_info: catalog query failed")
		return fmt.Sprintf("Schema error: %v", err)
	}
	defer rows.Close()

	var columns []columnDesc
	for rows.Next() {
		var c columnDesc
		if err := rows.Scan(&c.Table, &c.Name, &c.DataType, &c.Nullable, &c.Default, &c.Comment); err != nil {
			m.logger.Error().Err(err).Msg("get_schema_info: scan failed")
			return fmt.Sprintf("Schema error: %v", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		m.logger.Error().Err(err).Msg("get_schema_info: rows error")
		return fmt.Sprintf("Schema error: %v", err)
	}

	if tableName != "" {
		return formatTableColumns(tableName, columns)
	}
	return formatSchemaOverview(columns)
}

// formatTableColumns renders one line per column with nullability and
// default/comment annotations.
func formatTableColumns(tableName string, columns []columnDesc) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s\nColumns:\n", tableName)
	for _, c := range columns {
		writeColumnLine(&sb, c)
	}
	return sb.String()
}

// formatSchemaOverview renders a per-table grouped listing. A table header
// is inserted whenever the table name changes in the ordered result stream.
func formatSchemaOverview(columns []columnDesc) string {
	var sb strings.Builder
	sb.WriteString("Database Schema (all tables):\n")
	lastTable := ""
	for _, c := range columns {
		if c.Table != lastTable {
			fmt.Fprintf(&sb, "\nTable: %s\nColumns:\n", c.Table)
			lastTable = c.Table
		}
		writeColumnLine(&sb, c)
	}
	return sb.String()
}

func writeColumnLine(sb *strings.Builder, c columnDesc) {
	nullability := "NULL"
	if c.Nullable == "NO" {
		nullability = "NOT NULL"
	}
	fmt.Fprintf(sb, "  - %s: %s %s", c.Name, c.DataType, nullability)
	if c.Default.Valid {
		fmt.Fprintf(sb, " DEFAULT %s", c.Default.String)
	}
	if c.Comment != "" {
		fmt.Fprintf(sb, "  # %s", c.Comment)
	}
	sb.WriteString("\n")
}
