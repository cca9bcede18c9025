package database

import (
	"testing"

	"github.com/benvon/corsgate/internal/models"
)

func TestOriginNames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"single", []string{"https://a.example.com"}, []string{"https://a.example.com"}},
		{"order kept", []string{"https://b.com", "https://a.com"}, []string{"https://b.com", "https://a.com"}},
		{"dedup", []string{"x", "x", "y"}, []string{"x", "y"}},
		{"blank dropped", []string{"", "a"}, []string{"a"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var list []models.AllowedOrigin
			for _, o := range tt.in {
				list = append(list, models.AllowedOrigin{Origin: o})
			}
			got := OriginNames(list)
			if len(got) != len(tt.want) {
				t.Fatalf("OriginNames(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("OriginNames(%v)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCorsConfigRepository_GetSet(t *testing.T) {
	t.Skip("Requires database setup - implement with testcontainers or integration test setup")
}

func TestOriginRepository_AddRemove(t *testing.T) {
	t.Skip("Requires database setup - implement with testcontainers or integration test setup")
}
