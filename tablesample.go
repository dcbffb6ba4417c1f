package mymcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickchristie/mysql-mcp/internal/mysqlconn"
	"github.com/rickchristie/mysql-mcp/internal/tunnel"
)

const (
	defaultSampleLimit = 5
	maxSampleLimit     = 20
)

// tableSample fetches column descriptions and up to a clamped number of
// rows from one table.
//
// The table identifier is quoted into the query text, not bound: the wire
// protocol cannot bind identifiers, only values. Table names are therefore
// outside the safety validator's reach and are treated as trusted input
// from the calling agent.
func (m *MysqlMcp) tableSample(ctx context.Context, endpoint tunnel.Endpoint, args map[string]any) string {
	tableName := strings.TrimSpace(stringArg(args, "table_name"))
	if tableName == "" {
		return "Table name is required"
	}
	limit := clampSampleLimit(intArg(args, "limit", defaultSampleLimit))

	db, err := m.connector.Open(ctx, endpoint.Host, endpoint.Port, mysqlconn.PurposeSingleCall)
	if err != nil {
		m.logger.Error().Err(err).Msg("get_table_sample: connection failed")
		return fmt.Sprintf("Table sample error: %v", err)
	}
	defer m.closeQuietly(db)

	descRows, err := db.QueryContext(ctx, fmt.Sprintf("DESCRIBE %s", quoteIdentifier(tableName)))
	if err != nil {
		m.logger.Error().Err(err).Msg("get_table_sample: describe failed")
		return fmt.Sprintf("Table sample error: %v", err)
	}
	_, described, err := collectRows(descRows)
	descRows.Close()
	if err != nil {
		m.logger.Error().Err(err).Msg("get_table_sample: describe fetch failed")
		return fmt.Sprintf("Table sample error: %v", err)
	}

	sampleRows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdentifier(tableName), limit))
	if err != nil {
		m.logger.Error().Err(err).Msg("get_table_sample: sample query failed")
		return fmt.Sprintf("Table sample error: %v", err)
	}
	defer sampleRows.Close()
	columns, records, err := collectRows(sampleRows)
	if err != nil {
		m.logger.Error().Err(err).Msg("get_table_sample: sample fetch failed")
		return fmt.Sprintf("Table sample error: %v", err)
	}

	return formatTableSample(tableName, described, columns, records)
}

// clampSampleLimit bounds the requested row count to [1, maxSampleLimit].
// Zero and negative values are treated as "not provided" and fall back to
// the default rather than erroring.
func clampSampleLimit(limit int) int {
	if limit < 1 {
		return defaultSampleLimit
	}
	if limit > maxSampleLimit {
		return maxSampleLimit
	}
	return limit
}

// quoteIdentifier backtick-quotes a table identifier for interpolation
// into query text.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// formatTableSample renders the column descriptions followed by each
// sampled row's column-to-value pairs.
func formatTableSample(tableName string, described []map[string]any, columns []string, records []map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s\n\n", tableName)

	sb.WriteString("Columns:\n")
	for _, d := range described {
		// DESCRIBE yields Field and Type in the first two columns.
		fmt.Fprintf(&sb, "  - %s: %s\n", formatValue(d["Field"]), formatValue(d["Type"]))
	}

	fmt.Fprintf(&sb, "\nSample Data (%d rows):\n", len(records))
	for i, record := range records {
		fmt.Fprintf(&sb, "\nRow %d:\n", i+1)
		for _, col := range columns {
			fmt.Fprintf(&sb, "  %s: %s\n", col, formatValue(record[col]))
		}
	}
	return sb.String()
}
