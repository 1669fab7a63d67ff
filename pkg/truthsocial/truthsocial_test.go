package truthsocial

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postharvest/pkg/errors"
)

func TestTimelineURL(t *testing.T) {
	tests := []struct {
		name     string
		maxID    string
		limit    int
		expected string
	}{
		{
			name:     "first page",
			limit:    40,
			expected: "https://truthsocial.com/api/v1/accounts/107780257626128497/statuses?limit=40",
		},
		{
			name:     "with cursor",
			maxID:    "114000000000000001",
			limit:    40,
			expected: "https://truthsocial.com/api/v1/accounts/107780257626128497/statuses?limit=40&max_id=114000000000000001",
		},
		{
			name:     "limit out of range falls back",
			limit:    500,
			expected: "https://truthsocial.com/api/v1/accounts/107780257626128497/statuses?limit=40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimelineURL("", "107780257626128497", tt.maxID, tt.limit)
			assert.Equal(t, tt.expected, got)
			_, err := url.Parse(got)
			assert.NoError(t, err)
			assert.True(t, IsTimelineURL(got))
		})
	}
}

func TestTimelineURLCustomBase(t *testing.T) {
	got := TimelineURL("http://127.0.0.1:8080/", "1", "", 10)
	assert.Equal(t, "http://127.0.0.1:8080/api/v1/accounts/1/statuses?limit=10", got)
}

func TestProfileURL(t *testing.T) {
	assert.Equal(t, "https://truthsocial.com/@realDonaldTrump", ProfileURL("", "@realDonaldTrump"))
	assert.Equal(t, "https://truthsocial.com/@someone", ProfileURL("", " someone/ "))
	assert.Empty(t, ProfileURL("", "@"))
}

func TestIsTimelineURL(t *testing.T) {
	assert.True(t, IsTimelineURL("https://truthsocial.com/api/v1/accounts/1/statuses?exclude_replies=true"))
	assert.False(t, IsTimelineURL("https://truthsocial.com/api/v1/accounts/1/followers"))
	assert.False(t, IsTimelineURL("https://truthsocial.com/api/v1/statuses/1/context"))
}

func TestParseStatuses(t *testing.T) {
	body := []byte(`[{"id":"3","content":"<p>newest</p>"},{"id":"2","content":"middle"},{"id":"1","content":""}]`)

	statuses, err := ParseStatuses(body)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.Equal(t, "1", Oldest(statuses))
	assert.Equal(t, []string{"<p>newest</p>", "middle", ""}, Contents(statuses))
}

func TestParseStatusesRejectsNonList(t *testing.T) {
	for _, body := range []string{`{"error": true}`, ``, `null`, `"text"`} {
		_, err := ParseStatuses([]byte(body))
		require.Error(t, err, body)
		assert.True(t, errors.IsType(err, errors.ErrorTypeParsing), body)
	}
}

func TestParseStatusesMalformedList(t *testing.T) {
	_, err := ParseStatuses([]byte(`[{"id":`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParsing))
}

func TestParseStatusesEmptyList(t *testing.T) {
	statuses, err := ParseStatuses([]byte(` [] `))
	require.NoError(t, err)
	assert.Empty(t, statuses)
	assert.Empty(t, Oldest(statuses))
}

func TestEmptyPage(t *testing.T) {
	for _, body := range []string{"", " \r\n", "null", " null "} {
		assert.True(t, EmptyPage([]byte(body)), "%q", body)
	}
	for _, body := range []string{"[]", `{"error":"x"}`, `[{"id":"1"}]`} {
		assert.False(t, EmptyPage([]byte(body)), "%q", body)
	}
}
