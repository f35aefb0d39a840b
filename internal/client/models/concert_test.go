package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSongsRoundTrip(t *testing.T) {
	songs := []string{"Intro", "Thunderstruck", "Encore Jam"}
	assert.Equal(t, songs, SplitSongs(JoinSongs(songs)))
	assert.Nil(t, SplitSongs(""))
	assert.Equal(t, "", JoinSongs(nil))
}

func TestYMD(t *testing.T) {
	d := time.Date(2024, 7, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-07-19", FormatYMD(&d))
	assert.Equal(t, "", FormatYMD(nil))

	got := ParseYMD("2024-07-19")
	if assert.NotNil(t, got) {
		assert.True(t, got.Equal(d))
	}
	assert.Nil(t, ParseYMD(""))
	assert.Nil(t, ParseYMD("19-07-2024"))
}
