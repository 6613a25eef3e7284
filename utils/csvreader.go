package utils

import (
	"encoding/csv"
	"io"
)

// ParseCSV reads every row. Device exports are ragged, so the field count is
// not enforced here; callers check the columns they need.
func ParseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}
