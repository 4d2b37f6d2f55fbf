package studio

import (
	"bytes"
	"strconv"

	"github.com/bogem/id3v2/v2"

	"github.com/llehouerou/castdeck/internal/episode"
)

// tagMP3 returns data with an ID3v2.4 tag describing the episode. An
// existing tag is replaced, keeping its other frames.
func tagMP3(data []byte, e *episode.Episode, artist string, year int) ([]byte, error) {
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	audio := data[id3v2Size(data):]

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(e.Title)
	tag.SetArtist(artist)
	tag.SetAlbum(artist)
	tag.SetGenre("Podcast")
	tag.SetYear(strconv.Itoa(year))
	if e.Description != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "",
			Text:        e.Description,
		})
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, err
	}
	buf.Write(audio)
	return buf.Bytes(), nil
}

// id3v2Size returns the byte length of a leading ID3v2 tag, or 0.
func id3v2Size(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	return min(10+size, len(data))
}
