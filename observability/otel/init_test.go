package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization = Bearer abc ,x-team=bounty,,novalue,=skip")
	require.Equal(t, map[string]string{
		"authorization": "Bearer abc",
		"x-team":        "bounty",
	}, headers)
	require.Empty(t, ParseHeaders(""))
}

func TestInitWithoutExporters(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	cfg := Config{ServiceName: "bountyd"}
	require.False(t, cfg.Enabled())
	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
