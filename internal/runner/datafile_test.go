package runner

import "testing"

func TestParseDataRowsCSV(t *testing.T) {
	rows, err := ParseDataRows("users.csv", []byte("username,password\nalice,pw1\nbob,pw2\n"))
	if err != nil {
		t.Fatalf("ParseDataRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["username"] != "alice" || rows[1]["password"] != "pw2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseDataRowsJSON(t *testing.T) {
	rows, err := ParseDataRows("users.json", []byte(`[{"username":"alice","id":1},{"username":"bob","id":2}]`))
	if err != nil {
		t.Fatalf("ParseDataRows: %v", err)
	}
	if len(rows) != 2 || rows[0]["username"] != "alice" || rows[0]["id"] != "1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseDataRowsEmptyFilenameIsNotAnError(t *testing.T) {
	rows, err := ParseDataRows("", nil)
	if err != nil || rows != nil {
		t.Fatalf("expected nil, nil for no data file; got %+v, %v", rows, err)
	}
}

func TestParseDataRowsRejectsUnknownExtension(t *testing.T) {
	_, err := ParseDataRows("users.txt", []byte("x"))
	if err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}

func TestRowAtWrapsByModulo(t *testing.T) {
	rows := []map[string]string{{"n": "0"}, {"n": "1"}, {"n": "2"}}
	if RowAt(rows, 4)["n"] != "1" {
		t.Fatalf("expected row 1 at index 4, got %+v", RowAt(rows, 4))
	}
	if RowAt(nil, 4) != nil {
		t.Fatal("expected nil row when there are no data rows")
	}
}
