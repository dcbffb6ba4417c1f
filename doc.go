// Package mymcp exposes a MySQL database to AI agents through the Model
// Context Protocol (MCP).
//
// It provides four tools (execute_sql, get_schema_info, get_table_sample,
// and get_reference_doc) behind a safety-and-lifecycle layer: every
// user-supplied query passes a denylist validator before execution, an
// optional SSH tunnel hop is managed transparently per call, and database
// connections are acquired with bounded retries and released before the
// call returns.
//
// Each call is fully self-contained. Tunnel and connection are established
// fresh for every call and torn down afterwards, trading latency for
// failure isolation; no resource is shared or pooled across calls.
//
// # Library Usage
//
//	config, err := mymcp.ConfigFromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//	m := mymcp.New(config, logger)
//
//	// Use directly
//	text := m.CallTool(ctx, mymcp.ToolExecuteSQL, map[string]any{"query": "SELECT 1"})
//
//	// Or register as MCP tools
//	mymcp.RegisterMCPTools(mcpServer, m)
//
// # Safety model
//
// The validator is a surface-level denylist (restricted command keywords,
// multiple statements, comment markers), deliberately not a SQL parser.
// It cannot catch keyword obfuscation; that gap is a documented property
// of the control. Table identifiers passed to get_table_sample are quoted
// into query text, since identifiers cannot be bound as parameters, and
// are trusted input from the calling agent.
package mymcp
