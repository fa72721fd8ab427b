package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingLogger(t *testing.T) {
	var logger CapturingLogger
	logger.Printf("message %d", 1)
	logger.Println("message", 2)

	output := logger.Output()
	require.Len(t, output, 2)
	assert.Equal(t, "message 1", output[0].Message)
	assert.Equal(t, "message 2", output[1].Message)
	assert.True(t, output.HasMessageContaining("message 1"))
	assert.False(t, output.HasMessageContaining("message 3"))
}

func TestLoggerWithPrefix(t *testing.T) {
	var base CapturingLogger
	logger := LoggerWithPrefix(&base, "[p] ")
	logger.Printf("value is %d", 3)

	output := base.Output()
	require.Len(t, output, 1)
	assert.Equal(t, "[p] value is 3", output[0].Message)
}

func TestNullLoggerDiscardsOutput(t *testing.T) {
	logger := NullLogger()
	logger.Printf("nothing %d", 1)
	logger.Println("nothing")
}
