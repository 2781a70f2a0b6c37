package extractor

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mpetrov/rag-chatbot/internal/core/domain"
)

// extractXLSX renders every sheet as tab-separated rows, sheets separated by
// a blank line.
func extractXLSX(raw []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "open xlsx", err)
	}
	defer workbook.Close()

	var sheets []string
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", domain.WrapError(domain.ErrParse, "read xlsx sheet", err)
		}

		var lines []string
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			sheets = append(sheets, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}
