package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jantolip/consensus/pkg/models"
)

// CSVFilename is the suggested download filename for the export.
const CSVFilename = "stock_analysis.csv"

// WriteCSV writes the tally as delimited text: one row per ticker with
// its appearance count, in tally order.
func WriteCSV(w io.Writer, entries []models.TallyEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Symbol", "Appearances"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Ticker, strconv.Itoa(e.Appearances)}); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
