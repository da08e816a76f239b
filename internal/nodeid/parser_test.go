// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectErr    bool
		expectedPath *Path
	}{
		{
			name: "simple relative path",
			raw:  "A/value",
			expectedPath: &Path{
				Segments: []Segment{NewNameSegment("A"), NewNameSegment("value")},
			},
		},
		{
			name: "absolute path",
			raw:  "/geo1/xform1",
			expectedPath: &Path{
				Absolute: true,
				Segments: []Segment{NewNameSegment("geo1"), NewNameSegment("xform1")},
			},
		},
		{
			name: "parent and current segments",
			raw:  "../not_yet_created/./x",
			expectedPath: &Path{
				Segments: []Segment{
					{Kind: SegmentParent},
					NewNameSegment("not_yet_created"),
					{Kind: SegmentCurrent},
					NewNameSegment("x"),
				},
			},
		},
		{
			name: "id anchored path",
			raw:  "#12/value",
			expectedPath: &Path{
				Segments: []Segment{NewIDSegment(12), NewNameSegment("value")},
			},
		},
		{
			name:         "bare root",
			raw:          "/",
			expectedPath: &Path{Absolute: true},
		},
		{
			name:      "error - empty string",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - empty segment",
			raw:       "a//b",
			expectErr: true,
		},
		{
			name:      "error - trailing slash",
			raw:       "a/b/",
			expectErr: true,
		},
		{
			name:      "error - invalid name",
			raw:       "a/1b",
			expectErr: true,
		},
		{
			name:      "error - hyphen in name",
			raw:       "http-client",
			expectErr: true,
		},
		{
			name:      "error - id not first",
			raw:       "a/#3",
			expectErr: true,
		},
		{
			name:      "error - absolute id",
			raw:       "/#3",
			expectErr: true,
		},
		{
			name:      "error - malformed id",
			raw:       "#x",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, p)
			assert.True(t, tc.expectedPath.Equal(p), "parsed %#v", p)
		})
	}
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("geo1"))
	assert.True(t, IsValidName("_private"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("1geo"))
	assert.False(t, IsValidName("a.b"))
}
