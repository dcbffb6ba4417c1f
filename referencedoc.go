package mymcp

import "os"

// referenceDocPath is the static documentation artifact served by the
// get_reference_doc tool, resolved relative to the working directory.
const referenceDocPath = "MCP_USECASES.md"

// referenceDoc returns the full reference documentation text, or a
// fallback message if the file is unreadable. No database interaction.
func (m *MysqlMcp) referenceDoc() string {
	data, err := os.ReadFile(referenceDocPath)
	if err != nil {
		m.logger.Error().Err(err).Str("path", referenceDocPath).Msg("failed to read reference documentation")
		return "Reference documentation not available."
	}
	return string(data)
}
