package table

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"biodivcore/pkg/measure"
)

func TestReadLongCSVResolvesColumnsByName(t *testing.T) {
	input := "species,count,sample,group,x,y,notes\n" +
		"oak,3,p1,invaded,1.5,2.5,edge of plot\n" +
		"ash,0,p1,invaded,1.5,2.5,\n"
	records, err := ReadLongCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadLongCSV: %v", err)
	}
	want := Records{
		{Sample: "p1", Group: "invaded", X: 1.5, Y: 2.5, Species: "oak", Count: 3},
		{Sample: "p1", Group: "invaded", X: 1.5, Y: 2.5, Species: "ash", Count: 0},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("unexpected records:\n got %+v\nwant %+v", records, want)
	}
}

func TestReadLongCSVWithoutOptionalColumns(t *testing.T) {
	input := "sample,species,count\np1,oak,3\n"
	records, err := ReadLongCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadLongCSV: %v", err)
	}
	if records[0].Group != "" || records[0].X != 0 || records[0].Y != 0 {
		t.Fatalf("optional columns should default to zero values, got %+v", records[0])
	}
}

func TestReadLongCSVRejectsMalformedCells(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"missing column", "sample,species\np1,oak\n"},
		{"non-integer count", "sample,species,count\np1,oak,3.5\n"},
		{"negative count", "sample,species,count\np1,oak,-2\n"},
		{"bad coordinate", "sample,species,count,x\np1,oak,3,east\n"},
	}
	for _, tc := range cases {
		if _, err := ReadLongCSV(strings.NewReader(tc.input)); !errors.Is(err, measure.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
	}
}

func TestLongCSVRoundTrip(t *testing.T) {
	records := Records{
		{Sample: "p1", Group: "invaded", X: 0.5, Y: 1.25, Species: "honeysuckle", Count: 30},
		{Sample: "p2", Group: "uninvaded", Species: "oak", Count: 12},
	}
	var buf bytes.Buffer
	if err := WriteLongCSV(&buf, records); err != nil {
		t.Fatalf("WriteLongCSV: %v", err)
	}
	back, err := ReadLongCSV(&buf)
	if err != nil {
		t.Fatalf("ReadLongCSV: %v", err)
	}
	if !reflect.DeepEqual(back, records) {
		t.Fatalf("round trip changed records:\n got %+v\nwant %+v", back, records)
	}
}

func TestReadWideCSVDetectsGroupColumn(t *testing.T) {
	input := "sample,group,ash,oak\np1,invaded,2,5\np2,uninvaded,1,0\n"
	wide, err := ReadWideCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadWideCSV: %v", err)
	}
	if !reflect.DeepEqual(wide.Species, []string{"ash", "oak"}) {
		t.Fatalf("unexpected species %v", wide.Species)
	}
	if wide.Rows[0].Group != "invaded" || wide.Rows[1].Group != "uninvaded" {
		t.Fatalf("group column not detected: %+v", wide.Rows)
	}
}

func TestReadWideCSVWithoutGroupColumn(t *testing.T) {
	input := "sample,ash,oak\np1,2,5\n"
	wide, err := ReadWideCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadWideCSV: %v", err)
	}
	if !reflect.DeepEqual(wide.Species, []string{"ash", "oak"}) {
		t.Fatalf("unexpected species %v", wide.Species)
	}
	if wide.Rows[0].Group != "" || !reflect.DeepEqual(wide.Rows[0].Counts, []int{2, 5}) {
		t.Fatalf("unexpected row %+v", wide.Rows[0])
	}
}

func TestReadWideCSVSortsSpeciesColumns(t *testing.T) {
	input := "sample,oak,ash\np1,5,2\n"
	wide, err := ReadWideCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadWideCSV: %v", err)
	}
	if !reflect.DeepEqual(wide.Species, []string{"ash", "oak"}) {
		t.Fatalf("species columns not sorted: %v", wide.Species)
	}
	if !reflect.DeepEqual(wide.Rows[0].Counts, []int{2, 5}) {
		t.Fatalf("counts not remapped with the sort: %v", wide.Rows[0].Counts)
	}
}

func TestReadWideCSVRejectsBadCells(t *testing.T) {
	cases := []string{
		"sample\np1\n",
		"sample,oak\np1,many\n",
		"sample,oak\np1,-1\n",
		"sample,oak\n,3\n",
	}
	for _, input := range cases {
		if _, err := ReadWideCSV(strings.NewReader(input)); !errors.Is(err, measure.ErrInvalidInput) {
			t.Fatalf("input %q: expected invalid input, got %v", input, err)
		}
	}
}

func TestWideCSVRoundTrip(t *testing.T) {
	wide := Wide{
		Species: []string{"ash", "oak"},
		Rows: []WideRow{
			{Sample: "p1", Group: "invaded", Counts: []int{2, 5}},
			{Sample: "p2", Group: "uninvaded", Counts: []int{4, 0}},
		},
	}
	var buf bytes.Buffer
	if err := WriteWideCSV(&buf, wide); err != nil {
		t.Fatalf("WriteWideCSV: %v", err)
	}
	back, err := ReadWideCSV(&buf)
	if err != nil {
		t.Fatalf("ReadWideCSV: %v", err)
	}
	if !reflect.DeepEqual(back, wide) {
		t.Fatalf("round trip changed the table:\n got %+v\nwant %+v", back, wide)
	}
}

func TestWriteWideCSVOmitsGroupWhenUnlabelled(t *testing.T) {
	wide := Wide{Species: []string{"oak"}, Rows: []WideRow{{Sample: "p1", Counts: []int{3}}}}
	var buf bytes.Buffer
	if err := WriteWideCSV(&buf, wide); err != nil {
		t.Fatalf("WriteWideCSV: %v", err)
	}
	if got := buf.String(); got != "sample,oak\np1,3\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
