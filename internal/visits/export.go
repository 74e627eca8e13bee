package visits

import (
	"encoding/csv"
	"io"
	"strconv"

	"animehub/pkg/models"
)

// WriteCSV writes a date,count header followed by one row per bucket.
func WriteCSV(w io.Writer, visits []models.DailyVisit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "count"}); err != nil {
		return err
	}
	for _, v := range visits {
		if err := cw.Write([]string{v.Date, strconv.FormatInt(v.Count, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Total sums the counts.
func Total(visits []models.DailyVisit) int64 {
	var n int64
	for _, v := range visits {
		n += v.Count
	}
	return n
}
