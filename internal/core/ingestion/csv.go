package ingestion

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/core/timeseries"
)

// Column headers accepted from uploaded datasets. Matching is
// case-insensitive and ignores surrounding whitespace.
var (
	timestampHeaders = []string{"datetime", "timestamp", "date", "time"}
	usageHeaders     = []string{"usage (kw)", "use_at_kw", "usage_kw", "usage", "kw"}
)

// ParseCSV reads an uploaded dataset into raw rows for normalization.
// The first record is treated as a header and used to locate the timestamp
// and usage columns; unknown columns are ignored. Ragged rows are skipped
// rather than aborting the parse.
func ParseCSV(r io.Reader) ([]timeseries.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &timeseries.InvalidDatasetError{Reason: "file is empty or not valid CSV"}
	}

	tsCol, usageCol := locateColumns(header)
	if tsCol < 0 || usageCol < 0 {
		return nil, &timeseries.InvalidDatasetError{Reason: "missing required timestamp or usage column"}
	}

	var rows []timeseries.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(record) <= tsCol || len(record) <= usageCol {
			continue
		}
		rows = append(rows, timeseries.RawRow{
			Timestamp: record[tsCol],
			Usage:     record[usageCol],
		})
	}

	if len(rows) == 0 {
		return nil, &timeseries.InvalidDatasetError{Reason: "no data rows after header"}
	}
	return rows, nil
}

func locateColumns(header []string) (tsCol, usageCol int) {
	tsCol, usageCol = -1, -1
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if tsCol < 0 && contains(timestampHeaders, normalized) {
			tsCol = i
		}
		if usageCol < 0 && contains(usageHeaders, normalized) {
			usageCol = i
		}
	}
	return tsCol, usageCol
}

func contains(candidates []string, value string) bool {
	for _, c := range candidates {
		if c == value {
			return true
		}
	}
	return false
}
