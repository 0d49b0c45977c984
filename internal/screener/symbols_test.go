package screener

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	csv := "Name, Symbol ,Sector\nReliance Industries,RELIANCE,Energy\nInfosys, INFY ,IT\n,,\n"
	symbols, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if !reflect.DeepEqual(symbols, []string{"RELIANCE", "INFY"}) {
		t.Fatalf("got %v", symbols)
	}
}

func TestParseCSV_LowercaseHeader(t *testing.T) {
	symbols, err := ParseCSV(strings.NewReader("symbol\nTCS\nHDFCBANK\n"))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if !reflect.DeepEqual(symbols, []string{"TCS", "HDFCBANK"}) {
		t.Fatalf("got %v", symbols)
	}
}

func TestParseCSV_MissingSymbolColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("name,price\nReliance,2800\n"))
	if err == nil {
		t.Fatal("expected error for missing symbol column")
	}
}

func TestParseManual(t *testing.T) {
	got := ParseManual(" RELIANCE, INFY ,,TCS ")
	if !reflect.DeepEqual(got, []string{"RELIANCE", "INFY", "TCS"}) {
		t.Fatalf("got %v", got)
	}
	if ParseManual("  ,") != nil {
		t.Fatal("expected nil for blank input")
	}
}
