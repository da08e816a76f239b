package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrames(t *testing.T) {
	testCases := []struct {
		in      string
		want    FrameRange
		wantErr bool
	}{
		{in: "12", want: FrameRange{Start: 12, End: 12}},
		{in: "1:24", want: FrameRange{Start: 1, End: 24}},
		{in: " -5 : 5 ", want: FrameRange{Start: -5, End: 5}},
		{in: "24:1", wantErr: true},
		{in: "a:b", wantErr: true},
		{in: "1:", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFrames(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, 24, FrameRange{Start: 1, End: 24}.Len())
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.ErrorContains(t, err, "ScenePath")

	_, err = NewConfig(Config{ScenePath: "a.hcl", HealthcheckPort: 70000})
	assert.ErrorContains(t, err, "healthcheck port")

	cfg, err := NewConfig(Config{ScenePath: "a.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Frames)
}

func TestConfigFromEnv(t *testing.T) {
	cfg, err := ConfigFromEnv(map[string]string{
		"COOKGRAPH_SCENE":             "scenes",
		"COOKGRAPH_HEALTHCHECK_PORT":  "8080",
		"COOKGRAPH_LIVE_LINK_TIMEOUT": "3s",
		"SCENE":                       "ignored without prefix",
	})
	require.NoError(t, err)
	assert.Equal(t, Config{
		ScenePath:       "scenes",
		Frames:          "1",
		LogFormat:       "json",
		LogLevel:        "info",
		HealthcheckPort: 8080,
		LiveLinkTimeout: 3 * time.Second,
	}, cfg)
}
