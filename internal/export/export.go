package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/user/spidermap/internal/entity"
)

// SheetName is the only worksheet of a spreadsheet export.
const SheetName = "Results"

// Columns is the header row shared by every export format.
var Columns = []string{
	"name", "address", "phone", "website", "category", "rating",
	"reviews_count", "latitude", "longitude", "gmaps_url",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row flattens a record in Columns order. Missing fields are empty strings.
func Row(r entity.Record) []string {
	return []string{
		r.Name,
		r.Address,
		r.Phone,
		r.Website,
		r.Category,
		r.Rating,
		r.ReviewsCount,
		r.LatitudeString(),
		r.LongitudeString(),
		r.SourceURL,
	}
}

// WriteCSV writes a UTF-8 CSV with a byte-order mark and a header row.
func WriteCSV(w io.Writer, records []entity.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a single "Results" sheet.
func WriteXLSX(w io.Writer, records []entity.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	for r, rec := range records {
		for c, v := range Row(rec) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
	}
	for i := 1; i <= len(Columns); i++ {
		col, _ := excelize.ColumnNumberToName(i)
		_ = f.SetColWidth(SheetName, col, col, 24)
	}
	return f.Write(w)
}

// WriteFile picks the encoder from the extension of path: .xlsx writes a
// spreadsheet, anything else CSV.
func WriteFile(path string, records []entity.Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = WriteXLSX(bw, records)
	} else {
		err = WriteCSV(bw, records)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return file.Close()
}
