package shared

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "Expected empty trace ID in original context")

	withTrace := SetTraceID(ctx, "req-42")
	assert.Equal(t, "req-42", GetTraceID(withTrace))
	assert.Empty(t, GetTraceID(ctx), "Expected original context to remain unchanged")
}

func TestSetTraceIDGeneratesWhenEmpty(t *testing.T) {
	first := GetTraceID(SetTraceID(context.Background(), ""))
	second := GetTraceID(SetTraceID(context.Background(), ""))

	_, err := uuid.Parse(first)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGetTraceIDWithInvalidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123) // Not a string
	assert.Empty(t, GetTraceID(ctx))
}
