package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	start, end, err := dayBounds(seoul, "2024-01-16")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, seoul), start)
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, seoul), end)

	_, _, err = dayBounds(seoul, "20240116")
	assert.Error(t, err)
}
