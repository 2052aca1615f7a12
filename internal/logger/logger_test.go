package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogErrorToleratesNilError(t *testing.T) {
	assert.NotPanics(t, func() {
		LogError("something went wrong", nil, nil)
	})
	assert.NotPanics(t, func() {
		LogError("something went wrong", errors.New("cause"), map[string]interface{}{"k": "v"})
	})
}
