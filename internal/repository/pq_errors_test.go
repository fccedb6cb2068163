package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	slugErr := &pq.Error{Code: "23505", Constraint: "categories_slug_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"制約名一致", slugErr, "categories_slug_key", true},
		{"ラップされたエラー", fmt.Errorf("insert: %w", slugErr), "categories_slug_key", true},
		{"制約名不一致", slugErr, "users_email_key", false},
		{"制約名指定なし", slugErr, "", true},
		{"別のSQLSTATE", &pq.Error{Code: "23503"}, "", false},
		{"pq以外のエラー", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
