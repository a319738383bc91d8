package leads

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"waleads/internal/fsstore"
)

// Stable column set of the lead table; one row per unique phone.
var csvHeader = []string{"phone", "name", "status", "last_message_excerpt", "last_updated"}

func writeCSV(path string, records []Lead) error {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, lead := range records {
		row := []string{
			lead.Phone,
			lead.Name,
			string(lead.Status),
			lead.LastMessageExcerpt,
			lead.LastUpdated.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fsstore.WriteTextAtomic(path, b.String())
}

func readCSV(path string) ([]Lead, bool, error) {
	content, exists, err := fsstore.ReadText(path)
	if err != nil {
		return nil, false, err
	}
	if !exists || strings.TrimSpace(content) == "" {
		return nil, false, nil
	}

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = len(csvHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, true, fmt.Errorf("parse lead table: %w", err)
	}
	if len(rows) == 0 {
		return nil, true, nil
	}
	if !isHeaderRow(rows[0]) {
		return nil, true, fmt.Errorf("parse lead table: unexpected header %v", rows[0])
	}

	out := make([]Lead, 0, len(rows)-1)
	for i, row := range rows[1:] {
		updated, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(row[4]))
		if parseErr != nil {
			return nil, true, fmt.Errorf("parse lead table row %d: %w", i+2, parseErr)
		}
		out = append(out, Lead{
			Phone:              strings.TrimSpace(row[0]),
			Name:               strings.TrimSpace(row[1]),
			Status:             Status(strings.TrimSpace(row[2])),
			LastMessageExcerpt: row[3],
			LastUpdated:        updated.UTC(),
		})
	}
	return out, true, nil
}

func isHeaderRow(row []string) bool {
	if len(row) != len(csvHeader) {
		return false
	}
	for i, col := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(row[i]), col) {
			return false
		}
	}
	return true
}
