package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func testOutput(buf *bytes.Buffer) *Output {
	return &Output{writer: buf, jsonMode: false, colorEnabled: false}
}

func TestStripANSI(t *testing.T) {
	in := "\x1b[32mgreen\x1b[0m plain \x1b[1;33mbold yellow\x1b[0m"
	if got := stripANSI(in); got != "green plain bold yellow" {
		t.Errorf("stripANSI() = %q", got)
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	o := &Output{writer: &buf, jsonMode: true}

	if err := o.JSON(map[string]int{"total_trades": 7}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["total_trades"] != 7 {
		t.Errorf("decoded total_trades = %d, want 7", decoded["total_trades"])
	}
}

func TestOutputColorDisabled(t *testing.T) {
	var buf bytes.Buffer
	o := testOutput(&buf)

	o.Success("saved run %d", 3)
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("color escape codes written with color disabled: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "saved run 3") {
		t.Errorf("message missing: %q", buf.String())
	}
}

func TestPnLColorSigns(t *testing.T) {
	o := &Output{colorEnabled: true}
	if o.PnLColor(10) != ColorGreen {
		t.Error("positive pnl not green")
	}
	if o.PnLColor(-10) != ColorRed {
		t.Error("negative pnl not red")
	}
}

func TestTableAlignment(t *testing.T) {
	var buf bytes.Buffer
	o := testOutput(&buf)

	table := NewTable(o, "ID", "Dataset")
	table.AddRow("1", "spy_2024.csv")
	table.AddRow("12", "q.csv")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + separator + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	// Cells pad to the widest value in each column.
	if !strings.Contains(lines[2], "1   spy_2024.csv") {
		t.Errorf("row 1 = %q", lines[2])
	}
	if !strings.Contains(lines[3], "12  q.csv") {
		t.Errorf("row 2 = %q", lines[3])
	}
}

func TestTableEmptyHeadersRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(testOutput(&buf))
	table.AddRow("orphan")
	table.Render()

	if buf.Len() != 0 {
		t.Errorf("headerless table rendered %q", buf.String())
	}
}
