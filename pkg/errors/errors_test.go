package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := NotFound("project not found")
	wrapped := fmt.Errorf("load milestone parent: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeInvalid))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("plain")))
}

func TestErrorString(t *testing.T) {
	e := Wrap(fmt.Errorf("disk full"), CodeInternal, "write backup failed")
	assert.Equal(t, "internal: write backup failed: disk full", e.Error())
	assert.Equal(t, "invalid: quantity must be positive", Invalid("quantity must be positive").Error())
}
