package feed_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobgrid/importer/features/feed"
)

const feedURL = "https://example.com/jobs.rss"

func TestNormalize_RSSChannel(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Jobs</title>
    <item>
      <guid isPermaLink="false">job-1</guid>
      <title> Senior Gopher </title>
      <link>https://example.com/jobs/1</link>
      <description>Backend role at Initech, fully remote.</description>
      <location>Berlin, DE</location>
    </item>
    <item>
      <guid>job-2</guid>
      <title>Designer</title>
      <link>https://example.com/jobs/2</link>
      <description>Part-time design work. Location: Lisbon</description>
    </item>
  </channel>
</rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "job-1", first.ExternalID)
	assert.Equal(t, "Senior Gopher", first.Title)
	assert.Equal(t, "Initech", first.Company)
	// Structured location wins over the description heuristics.
	assert.Equal(t, "Berlin, DE", first.Location)
	assert.Equal(t, "https://example.com/jobs/1", first.URL)
	assert.Equal(t, feedURL, first.SourceFeed)

	second := records[1]
	assert.Equal(t, "job-2", second.ExternalID)
	assert.Equal(t, "Lisbon", second.Location)
	assert.Equal(t, "Part-time", second.Type)
}

func TestNormalize_LocationHeuristicKeepsRegionSuffix(t *testing.T) {
	doc := []byte(`<rss><channel><item>
		<guid>g1</guid>
		<title>Engineer</title>
		<description>Great team. Location: Berlin, DE</description>
	</item></channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Berlin, DE", records[0].Location)
}

func TestNormalize_Defaults(t *testing.T) {
	doc := []byte(`<rss><channel><item>
		<guid>g1</guid>
		<title>Engineer</title>
		<description>No hints here.</description>
	</item></channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Unknown", records[0].Company)
	assert.Equal(t, "Remote", records[0].Location)
	assert.Equal(t, "Full-time", records[0].Type)
}

func TestNormalize_SyntheticExternalID(t *testing.T) {
	doc := []byte(`<rss><channel>
		<item><title>First</title></item>
		<item><title>Second</title></item>
	</channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, fmt.Sprintf("%s-0", feedURL), records[0].ExternalID)
	assert.Equal(t, fmt.Sprintf("%s-1", feedURL), records[1].ExternalID)
}

func TestNormalize_ExternalIDFallbackChain(t *testing.T) {
	doc := []byte(`<rss><channel>
		<item><id>by-id</id><title>A</title></item>
		<item><link>https://example.com/x</link><title>B</title></item>
	</channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "by-id", records[0].ExternalID)
	assert.Equal(t, "https://example.com/x", records[1].ExternalID)
}

func TestNormalize_BareItemList(t *testing.T) {
	doc := []byte(`<jobs>
		<item><guid>a</guid><title>One</title></item>
		<item><guid>b</guid><title>Two</title></item>
	</jobs>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ExternalID)
	assert.Equal(t, "b", records[1].ExternalID)
}

func TestNormalize_EmptyChannel(t *testing.T) {
	doc := []byte(`<rss><channel><title>Nothing yet</title></channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalize_UnrecognizedStructure(t *testing.T) {
	doc := []byte(`<html><body>not a feed</body></html>`)

	_, err := feed.Normalize(doc, feedURL)
	var parseErr *feed.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, feedURL, parseErr.FeedURL)
}

func TestNormalize_NonXMLBody(t *testing.T) {
	_, err := feed.Normalize([]byte(`{"not": "xml"}`), feedURL)
	var parseErr *feed.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestNormalize_HTMLDescriptionHeuristics(t *testing.T) {
	doc := []byte(`<rss><channel><item>
		<guid>g1</guid>
		<title>Engineer</title>
		<description>&lt;p&gt;Join us at Globex&lt;/p&gt;&#10;&lt;p&gt;Location: Austin, TX&lt;/p&gt;</description>
	</item></channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Globex", records[0].Company)
	assert.Equal(t, "Austin, TX", records[0].Location)
}

func TestNormalize_RawPreservesItem(t *testing.T) {
	doc := []byte(`<rss><channel><item>
		<guid isPermaLink="false">g1</guid>
		<title>Engineer</title>
		<custom>kept</custom>
	</item></channel></rss>`)

	records, err := feed.Normalize(doc, feedURL)
	require.NoError(t, err)
	require.Len(t, records, 1)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(records[0].Raw, &raw))
	assert.Equal(t, "kept", raw["custom"])
	assert.Equal(t, "Engineer", raw["title"])
}

func TestJobRecord_Validate(t *testing.T) {
	rec := feed.JobRecord{ExternalID: "x", Title: "t", Company: "c"}
	assert.NoError(t, rec.Validate())

	rec.Title = ""
	err := rec.Validate()
	assert.ErrorContains(t, err, "title")

	empty := feed.JobRecord{}
	err = empty.Validate()
	assert.ErrorContains(t, err, "externalId")
	assert.ErrorContains(t, err, "company")
}
