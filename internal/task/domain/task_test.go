package domain

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	testCases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"", StatusNew, false},
		{"new", StatusNew, false},
		{"progress", StatusInProgress, false},
		{"in-progress", StatusInProgress, false},
		{" Hold ", StatusHold, false},
		{"resolved", StatusResolved, false},
		{"closed", "", true},
	}
	for _, tc := range testCases {
		got, err := ParseStatus(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseStatus(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if tc.wantErr && !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseStatus(%q) err = %v, want ErrInvalidStatus", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTask_Validate(t *testing.T) {
	ok := Task{Title: " Fix ", TaskListID: "l1", Status: StatusNew, Sequence: 1}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok.Title != "Fix" {
		t.Errorf("Title = %q, want trimmed", ok.Title)
	}
	bad := []Task{
		{TaskListID: "l1", Sequence: 1},
		{Title: "x", Sequence: 1},
		{Title: "x", TaskListID: "l1", Status: "closed", Sequence: 1},
		{Title: "x", TaskListID: "l1"},
	}
	for i, task := range bad {
		if err := task.Validate(); err == nil {
			t.Errorf("case %d: Validate() = nil, want error", i)
		}
	}
}

func TestStatus_Label(t *testing.T) {
	if StatusInProgress.Label() != "In Progress" {
		t.Errorf("Label = %q", StatusInProgress.Label())
	}
	if Status("x").Label() != "x" {
		t.Errorf("unknown Label = %q", Status("x").Label())
	}
}
