package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/user/spidermap/internal/entity"
)

func sampleRecords() []entity.Record {
	lat, lng := 34.0522349, -118.2436849
	return []entity.Record{
		{Name: "Blue Bottle", Address: "300 S Broadway", Phone: "+1 310-555-0101; 310-555-0102", Latitude: &lat, Longitude: &lng, SourceURL: "https://maps.example/a"},
		{Name: "Quiet, Corner", Rating: "4.1", ReviewsCount: "23"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
		t.Fatal("missing byte-order mark")
	}

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Columns) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][7] != "34.052235" || rows[1][8] != "-118.243685" {
		t.Errorf("coordinates = %q, %q", rows[1][7], rows[1][8])
	}
	if rows[2][0] != "Quiet, Corner" || rows[2][7] != "" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("sheets = %v, want [%s]", sheets, SheetName)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if !reflect.DeepEqual(rows[0], Columns) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "Blue Bottle" || rows[1][2] != "+1 310-555-0101; 310-555-0102" {
		t.Errorf("first row = %v", rows[1])
	}
}

func TestWriteFilePicksFormat(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out", "results.csv")
	if err := WriteFile(csvPath, sampleRecords()); err != nil {
		t.Fatalf("WriteFile csv: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, utf8BOM) {
		t.Error("csv output missing byte-order mark")
	}

	xlsxPath := filepath.Join(dir, "results.XLSX")
	if err := WriteFile(xlsxPath, sampleRecords()); err != nil {
		t.Fatalf("WriteFile xlsx: %v", err)
	}
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	f.Close()
}
