package types

import (
	"errors"
	"testing"
)

func TestRecordMessage(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{"empty", nil, ""},
		{"single string", []interface{}{"hello"}, "hello"},
		{"strings are spaced", []interface{}{"user", "logged", "in"}, "user logged in"},
		{"mixed operands", []interface{}{"retry", 3, "of", 5}, "retry 3 of 5"},
		{"error value", []interface{}{"failed:", errors.New("boom")}, "failed: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Record{Args: tt.args}).Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
