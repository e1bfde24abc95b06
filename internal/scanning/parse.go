package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// parseExtractedJSON parses the JSON a vision model returns into
// ExtractedData. Models wrap their output in markdown fences or chatter
// around it often enough that we cut out the first {...} block instead of
// trusting the whole response.
func parseExtractedJSON(text string) (*ExtractedData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data ExtractedData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Date = normalizeDate(data.Date)
	data.CustomerName = trimmed(data.CustomerName)
	data.EmployeeName = trimmed(data.EmployeeName)
	data.ChampagneType = trimmed(data.ChampagneType)

	return &data, nil
}

// normalizeDate coerces the common date spellings models produce into
// ISO 8601. An unparseable date becomes null rather than a guess; the
// confirmation step lets the user fill it in.
func normalizeDate(date *string) *string {
	if date == nil {
		return nil
	}
	raw := strings.TrimSpace(*date)
	if raw == "" {
		return nil
	}
	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
		"2006.01.02",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, raw); err == nil {
			iso := d.Format("2006-01-02")
			return &iso
		}
	}
	return nil
}

// trimmed trims a nullable string, turning whitespace-only values into null.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
