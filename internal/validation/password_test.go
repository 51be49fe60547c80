package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "rosemary42", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Length", strings.Repeat("b", 128), false},
		{"Too Short", "abc12", true},
		{"Too Long", strings.Repeat("b", 129), true},
		{"Digits Only", "1234567890", true},
		{"Symbols And Digits", "12345!@#$%", true},
		{"Unicode Letters", "Ångström1", false},
		{"Multibyte Counted As Runes", "ééééééé", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
