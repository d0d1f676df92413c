package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEnvVars(t *testing.T) {
	defined := map[string]struct{}{
		"WHALE_ALERT_FEED_API_KEY": {},
	}
	provided := []string{
		"WHALE_ALERT_FEED_API_KEY=secret",
		"WHALE_ALERT_FEED_APIKEY=typo",
		"PATH=/usr/bin",
	}
	require.Equal(t, []string{"WHALE_ALERT_FEED_APIKEY=typo"}, validateEnvVars("WHALE_ALERT", provided, defined))
}
