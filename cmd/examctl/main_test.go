package main

import (
	"testing"

	"github.com/stemsi/exstem-portal/internal/model"
)

func TestParseAnswer(t *testing.T) {
	payload := &model.ExamPayload{
		Questions: []model.Question{
			{ID: 1, Type: model.QuestionTypeMultiFlag, Option1: "a", Option2: "b"},
			{ID: 2, Type: model.QuestionTypeSingleChoiceAlt, Option1: "a", Option2: "b"},
		},
	}

	testCases := []struct {
		name    string
		id      string
		args    []string
		want    model.Answer
		wantErr bool
	}{
		{"marks", "1", []string{"1=y", "3=n", "2=-"}, model.MultiFlagAnswer(map[int]model.Mark{0: model.MarkTrue, 2: model.MarkFalse, 1: model.MarkUnset}), false},
		{"choice", "2", []string{"2"}, model.SingleChoiceAnswer(1), false},
		{"clear choice", "2", []string{"-"}, model.SingleChoiceAnswer(-1), false},
		{"option out of range", "2", []string{"6"}, model.Answer{}, true},
		{"mark without value", "1", []string{"1"}, model.Answer{}, true},
		{"bad mark", "1", []string{"1=maybe"}, model.Answer{}, true},
		{"unknown question", "9", []string{"1"}, model.Answer{}, true},
		{"bad id", "x", []string{"1"}, model.Answer{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := parseAnswer(payload, tc.id, tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Group != tc.want.Group {
				t.Fatalf("group = %s, want %s", got.Group, tc.want.Group)
			}
			if len(got.Marks) != len(tc.want.Marks) {
				t.Fatalf("marks = %v, want %v", got.Marks, tc.want.Marks)
			}
			for k, v := range tc.want.Marks {
				if got.Marks[k] != v {
					t.Errorf("mark %d = %d, want %d", k, got.Marks[k], v)
				}
			}
			if (got.Choice == nil) != (tc.want.Choice == nil) || (got.Choice != nil && *got.Choice != *tc.want.Choice) {
				t.Errorf("choice = %v, want %v", got.Choice, tc.want.Choice)
			}
		})
	}
}
