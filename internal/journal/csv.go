package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/homebook/internal/id"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// Header is the CSV header written by WriteLines.
var Header = []string{
	"entry_ref", "date", "description", "source", "line_no", "account_id",
	"debit", "credit", "memo", "native_amount", "native_currency", "fx_rate",
}

const numFields = 12

// MarshalLine converts a posted line to a CSV row. lineNo is 1-based within its entry.
func MarshalLine(l model.PostedLine, lineNo int) []string {
	row := make([]string, numFields)
	row[0] = id.FormatEntryRef(l.EntryDate, l.EntryID)
	row[1] = l.EntryDate.Format(model.DateFormat)
	row[2] = l.Description
	row[3] = string(l.Source)
	row[4] = strconv.Itoa(lineNo)
	row[5] = strconv.FormatInt(l.AccountID, 10)
	row[6] = l.Debit.StringFixed(2)
	row[7] = l.Credit.StringFixed(2)
	row[8] = l.Memo
	if snap := l.Snapshot; snap != nil {
		row[9] = snap.NativeAmount.String()
		row[10] = snap.NativeCurrency
		row[11] = snap.Rate.String()
	}
	return row
}

// WriteLines writes posted lines as CSV with a header row.
func WriteLines(w io.Writer, lines []model.PostedLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	var lastEntry int64
	lineNo := 0
	for i, l := range lines {
		if l.EntryID != lastEntry {
			lastEntry, lineNo = l.EntryID, 0
		}
		lineNo++
		if err := cw.Write(MarshalLine(l, lineNo)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes every line of entries dated in f's range as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, f store.LineFilter) error {
	lines, err := s.Lines(ctx, f)
	if err != nil {
		return fmt.Errorf("exporting journal: %w", err)
	}
	return WriteLines(w, lines)
}
