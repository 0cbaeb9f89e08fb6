package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<yml_catalog date="2025-01-01 00:00">
  <shop>
    <categories>
      <category id="1">Electronics</category>
      <category id="2" parentId="1">Phones</category>
      <category id="3" parentId="2">Smartphones</category>
      <category id="9">Garden</category>
    </categories>
    <offers>
      <offer id="A" available="true">
        <categoryId>3</categoryId>
        <vendor>Apple</vendor>
        <picture>https://example.com/a.jpg</picture>
      </offer>
      <offer id="B">
        <categoryId>3</categoryId>
      </offer>
      <offer id="C">
        <categoryId>9</categoryId>
        <vendor></vendor>
      </offer>
    </offers>
  </shop>
</yml_catalog>`

func TestParseFeed(t *testing.T) {
	feed, err := ParseFeed(strings.NewReader(sampleFeed))
	require.NoError(t, err)

	require.Len(t, feed.Offers, 3)
	assert.Equal(t, "A", feed.Offers[0].ID)
	assert.Equal(t, "3", feed.Offers[0].CategoryID.String)
	assert.True(t, feed.Offers[0].Vendor.Valid)
	assert.Equal(t, "Apple", feed.Offers[0].Vendor.String)

	t.Run("absent vendor is invalid", func(t *testing.T) {
		assert.False(t, feed.Offers[1].Vendor.Valid)
	})

	t.Run("empty vendor is valid and empty", func(t *testing.T) {
		assert.True(t, feed.Offers[2].Vendor.Valid)
		assert.Equal(t, "", feed.Offers[2].Vendor.String)
	})

	require.Len(t, feed.Categories, 4)
	assert.Equal(t, Category{ID: "2", ParentID: "1", Name: "Phones"}, feed.Categories[1])
}

func TestParseFeed_Errors(t *testing.T) {
	t.Run("malformed xml", func(t *testing.T) {
		_, err := ParseFeed(strings.NewReader(`<offers><offer id="A">`))
		assert.Error(t, err)
	})

	t.Run("offer without id", func(t *testing.T) {
		_, err := ParseFeed(strings.NewReader(`<offers><offer><vendor>x</vendor></offer></offers>`))
		assert.ErrorIs(t, err, ErrEmptyOfferID)
	})
}

func TestListAndLoadFeeds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_feed.xml", `<offers><offer id="2"/></offers>`)
	writeFile(t, dir, "a_feed.xml", `<offers><offer id="1"/></offers>`)
	writeFile(t, dir, "notes.txt", "ignored")

	names, err := ListFeeds(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_feed.xml", "b_feed.xml"}, names)

	feed, err := LoadFeeds(dir, names)
	require.NoError(t, err)
	require.Len(t, feed.Offers, 2)
	assert.Equal(t, "1", feed.Offers[0].ID)
	assert.Equal(t, "2", feed.Offers[1].ID)

	_, err = LoadFeeds(dir, []string{"missing.xml"})
	assert.Error(t, err)
}

func TestListFeeds_Empty(t *testing.T) {
	_, err := ListFeeds(t.TempDir())
	assert.ErrorIs(t, err, ErrNoFeeds)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}
