package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Field fallbacks applied when neither structured fields nor description
// heuristics produce a value.
const (
	defaultCompany  = "Unknown"
	defaultLocation = "Remote"
	defaultType     = "Full-time"
)

var (
	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)company:?\s*([^,\n]+)`),
		regexp.MustCompile(`(?i)\bat\s+([^,\n]+)`),
		regexp.MustCompile(`(?i)\bby\s+([^,\n]+)`),
	}

	// Location values commonly carry one comma segment ("Berlin, DE"),
	// so the capture allows a single ", xyz" tail.
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)location:?\s*([^,\n]+(?:,\s*[^,\n]+)?)`),
		regexp.MustCompile(`(?i)\bin\s+([^,\n]+(?:,\s*[^,\n]+)?)`),
	}

	typePattern = regexp.MustCompile(`(?i)(full[\s-]?time|part[\s-]?time|contract|freelance|internship)`)
)

// Normalize parses a raw feed document into canonical job records, in item
// declaration order. Malformed individual items never fail the call; only a
// document with no recognizable channel/item structure returns a *ParseError.
// Records missing required identity fields are still emitted — rejecting
// them is the reconciler's job.
func Normalize(doc []byte, feedURL string) ([]JobRecord, error) {
	root, err := parseXML(doc)
	if err != nil {
		return nil, &ParseError{FeedURL: feedURL, Err: err}
	}

	items, err := locateItems(root)
	if err != nil {
		return nil, &ParseError{FeedURL: feedURL, Err: err}
	}

	records := make([]JobRecord, 0, len(items))
	for i, item := range items {
		records = append(records, normalizeItem(item, feedURL, i))
	}
	return records, nil
}

// locateItems finds the item list at the conventional channel/item path,
// falling back to a bare top-level item list. A channel with zero items is
// an empty feed, not an error.
func locateItems(root *xmlNode) ([]*xmlNode, error) {
	if channels := root.children["channel"]; len(channels) > 0 {
		return channels[0].children["item"], nil
	}
	if items := root.children["item"]; len(items) > 0 {
		return items, nil
	}
	return nil, errors.New("unsupported document structure: no channel/item list found")
}

func normalizeItem(item *xmlNode, feedURL string, index int) JobRecord {
	description := firstNonEmpty(item.childText("description"), item.childText("summary"))
	// Heuristics operate on plain text; feed descriptions are usually HTML.
	descText := htmlText(description)

	externalID := firstNonEmpty(
		item.childText("guid"),
		item.childText("id"),
		item.childText("link"),
	)
	if externalID == "" {
		externalID = fmt.Sprintf("%s-%d", feedURL, index)
	}

	company := firstNonEmpty(
		item.childText("company"),
		matchFirst(companyPatterns, descText),
		item.childText("author"),
		defaultCompany,
	)

	location := firstNonEmpty(
		item.childText("location"),
		matchFirst(locationPatterns, descText),
		defaultLocation,
	)

	jobType := firstNonEmpty(
		item.childText("type"),
		matchFirst([]*regexp.Regexp{typePattern}, descText),
		defaultType,
	)

	raw, err := json.Marshal(item.toValue())
	if err != nil {
		raw = json.RawMessage(`{}`)
	}

	return JobRecord{
		ExternalID:  externalID,
		Title:       item.childText("title"),
		Description: description,
		Company:     company,
		Location:    location,
		Type:        jobType,
		URL:         firstNonEmpty(item.childText("link"), item.childText("url")),
		Raw:         raw,
		SourceFeed:  feedURL,
	}
}

// matchFirst tries each pattern in order and returns the first capture.
func matchFirst(patterns []*regexp.Regexp, text string) string {
	if text == "" {
		return ""
	}
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
			return trimmed(m[1])
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
