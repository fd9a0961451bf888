package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRequestFields(t *testing.T) {
	fields := RequestFields("GET", "/api/products?search=x", "1.2.3.4", "curl/8.0")

	assert.Equal(t, []zap.Field{
		zap.String("method", "GET"),
		zap.String("url", "/api/products?search=x"),
		zap.String("ip", "1.2.3.4"),
		zap.String("user_agent", "curl/8.0"),
	}, fields)
}
