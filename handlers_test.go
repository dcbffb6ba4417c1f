package mymcp

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

// errMySQL builds a driver-shaped error for failure-path tests.
func errMySQL(msg string) error {
	return &mysql.MySQLError{Number: 1054, Message: msg}
}

func TestExecuteSQL_SelectReturnsRows(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolExecuteSQL, map[string]any{"query": "SELECT 1"})

	if !strings.HasPrefix(result, "Query executed successfully. Results:") {
		t.Fatalf("unexpected result: %q", result)
	}
	if !strings.Contains(result, "Row 1:") || !strings.Contains(result, "1: 1") {
		t.Fatalf("expected one formatted row, got %q", result)
	}
	if strings.Contains(result, "Row 2:") {
		t.Fatalf("expected exactly one row, got %q", result)
	}
}

func TestExecuteSQL_ParenthesizedSelectReturnsRows(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("(SELECT 1) UNION (SELECT 2)").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)).AddRow(int64(2)))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolExecuteSQL, map[string]any{"query": "(SELECT 1) UNION (SELECT 2)"})

	if !strings.HasPrefix(result, "Query executed successfully. Results:") {
		t.Fatalf("expected rendered rows for parenthesized select, got %q", result)
	}
	if !strings.Contains(result, "Row 2:") {
		t.Fatalf("expected both union rows, got %q", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected query path, not exec: %v", err)
	}
}

func TestExecuteSQL_NoResultRows(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("SELECT id FROM users WHERE id = 999").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolExecuteSQL, map[string]any{"query": "SELECT id FROM users WHERE id = 999"})

	if result != "Query executed successfully. No results returned." {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestExecuteSQL_NonResultStatementReportsAffected(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectExec("SET @x = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolExecuteSQL, map[string]any{"query": "SET @x = 1"})

	if result != "Query executed successfully. Rows affected: 0" {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestExecuteSQL_DriverErrorBecomesTextResult(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("SELECT bogus FROM nowhere").
		WillReturnError(errMySQL("Unknown column 'bogus'"))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolExecuteSQL, map[string]any{"query": "SELECT bogus FROM nowhere"})

	if !strings.HasPrefix(result, "SQL error:") || !strings.Contains(result, "Unknown column") {
		t.Fatalf("expected driver error text, got %q", result)
	}
}

func TestSchemaInfo_SingleTable(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	rows := sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "COLUMN_COMMENT"}).
		AddRow("users", "id", "int", "NO", nil, "primary key").
		AddRow("users", "email", "varchar", "YES", "none@example.com", "")
	mock.ExpectQuery(tableColumnsSQL).WithArgs("users").WillReturnRows(rows)

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolGetSchemaInfo, map[string]any{"table_name": "users"})

	if !strings.HasPrefix(result, "Table: users\nColumns:\n") {
		t.Fatalf("unexpected header: %q", result)
	}
	if !strings.Contains(result, "  - id: int NOT NULL  # primary key\n") {
		t.Fatalf("expected NOT NULL column with comment, got %q", result)
	}
	if !strings.Contains(result, "  - email: varchar NULL DEFAULT none@example.com\n") {
		t.Fatalf("expected nullable column with default, got %q", result)
	}
}

func TestSchemaInfo_AllTablesGroupedByName(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	rows := sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "COLUMN_COMMENT"}).
		AddRow("orders", "id", "int", "NO", nil, "").
		AddRow("orders", "total", "decimal", "NO", "0", "").
		AddRow("users", "id", "int", "NO", nil, "")
	mock.ExpectQuery(allColumnsSQL).WillReturnRows(rows)

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolGetSchemaInfo, map[string]any{})

	if !strings.HasPrefix(result, "Database Schema (all tables):\n") {
		t.Fatalf("unexpected header: %q", result)
	}
	// One section per distinct table name, columns in stream order.
	if strings.Count(result, "Table: orders") != 1 || strings.Count(result, "Table: users") != 1 {
		t.Fatalf("expected one section per table, got %q", result)
	}
	ordersIdx := strings.Index(result, "Table: orders")
	usersIdx := strings.Index(result, "Table: users")
	if ordersIdx > usersIdx {
		t.Fatalf("expected sections in result-stream order, got %q", result)
	}
}

func TestTableSample_MissingTableName(t *testing.T) {
	t.Parallel()
	conn := &fakeConnector{}
	m := testEngine(testProvider(), conn)

	result := m.CallTool(context.Background(), ToolGetTableSample, map[string]any{})

	if result != "Table name is required" {
		t.Fatalf("unexpected result: %q", result)
	}
	if conn.opens != 0 {
		t.Fatalf("expected zero connection attempts without table name, got %d", conn.opens)
	}
}

func TestTableSample_LimitClampedToMax(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("DESCRIBE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "int", "NO", "PRI", nil, ""))
	mock.ExpectQuery("SELECT * FROM `users` LIMIT 20").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolGetTableSample, map[string]any{"table_name": "users", "limit": float64(50)})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected LIMIT clamped to 20: %v", err)
	}
	if !strings.Contains(result, "Sample Data (1 rows):") {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestTableSample_RendersColumnsThenRows(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("DESCRIBE `events`").
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("id", "int", "NO", "PRI", nil, "").
			AddRow("name", "varchar(255)", "YES", "", nil, ""))
	mock.ExpectQuery("SELECT * FROM `events` LIMIT 5").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "login").
			AddRow(int64(2), nil))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	result := m.CallTool(context.Background(), ToolGetTableSample, map[string]any{"table_name": "events"})

	if !strings.HasPrefix(result, "Table: events\n\nColumns:\n") {
		t.Fatalf("unexpected header: %q", result)
	}
	if !strings.Contains(result, "  - id: int\n") || !strings.Contains(result, "  - name: varchar(255)\n") {
		t.Fatalf("expected column descriptions, got %q", result)
	}
	columnsIdx := strings.Index(result, "Columns:")
	dataIdx := strings.Index(result, "Sample Data (2 rows):")
	if dataIdx < columnsIdx {
		t.Fatalf("expected columns rendered before sample data, got %q", result)
	}
	if !strings.Contains(result, "Row 2:\n  id: 2\n  name: NULL\n") {
		t.Fatalf("expected NULL rendering in row 2, got %q", result)
	}
}

func TestTableSample_BacktickInNameEscaped(t *testing.T) {
	t.Parallel()
	db, mock := mockDB(t)
	mock.ExpectQuery("DESCRIBE `odd``name`").
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}))
	mock.ExpectQuery("SELECT * FROM `odd``name` LIMIT 5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	m := testEngine(testProvider(), &fakeConnector{db: db})
	m.CallTool(context.Background(), ToolGetTableSample, map[string]any{"table_name": "odd`name"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected escaped identifier in queries: %v", err)
	}
}
