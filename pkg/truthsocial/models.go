package truthsocial

import (
	"bytes"
	"encoding/json"

	"postharvest/pkg/errors"
)

// Status is a single post entry from the timeline API. Only the fields the
// harvester needs are decoded.
type Status struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at,omitempty"`
	Content   string `json:"content"`
	URL       string `json:"url,omitempty"`
}

// ParseStatuses decodes a timeline page. Bodies that are not a JSON list are
// reported as parsing errors so callers can ignore them.
func ParseStatuses(body []byte) ([]Status, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "timeline body is not a list")
	}

	var statuses []Status
	if err := json.Unmarshal(trimmed, &statuses); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, err, "failed to decode timeline page")
	}
	return statuses, nil
}

// EmptyPage reports whether a successful response carried no data: a blank
// body or a JSON null. The timeline serves these once it runs out.
func EmptyPage(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Contents returns the raw content of every status in page order
func Contents(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s.Content)
	}
	return out
}

// Oldest returns the id of the last status in the page. Timelines are served
// newest first, so this is the next max_id.
func Oldest(statuses []Status) string {
	if len(statuses) == 0 {
		return ""
	}
	return statuses[len(statuses)-1].ID
}
