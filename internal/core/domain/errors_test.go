package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidMode", ErrInvalidMode},
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrToolNotFound", ErrToolNotFound},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat},
		{"ErrCorruptDocument", ErrCorruptDocument},
		{"ErrTaxonomyInvalid", ErrTaxonomyInvalid},
		{"ErrServiceUnavailable", ErrServiceUnavailable},
		{"ErrServiceQuotaExceeded", ErrServiceQuotaExceeded},
		{"ErrServiceAuth", ErrServiceAuth},
		{"ErrServiceNotConfigured", ErrServiceNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", ErrServiceUnavailable, true},
		{"wrapped unavailable", fmt.Errorf("%w: connection reset", ErrServiceUnavailable), true},
		{"quota", fmt.Errorf("%w: 429", ErrServiceQuotaExceeded), false},
		{"auth", fmt.Errorf("%w: 401", ErrServiceAuth), false},
		{"quota wrapping unavailable", fmt.Errorf("%w: %w", ErrServiceQuotaExceeded, ErrServiceUnavailable), false},
		{"unrelated", errors.New("boom"), false},
		{"corrupt", ErrCorruptDocument, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
