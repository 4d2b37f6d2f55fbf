package player

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// decode opens a beep stream for the given format.
func decode(r io.ReadSeeker, format string) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case FormatMP3:
		return mp3.Decode(nopCloser{r})
	case FormatFLAC:
		// Some taggers prepend an ID3v2 tag the FLAC decoder does not expect.
		if err := skipID3v2(r); err != nil {
			return nil, beep.Format{}, err
		}
		return flac.Decode(r)
	case FormatWAV:
		return wav.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format: %s", format)
	}
}

// Probe decodes just enough of an audio stream to report its duration.
func Probe(data []byte, format string) (time.Duration, error) {
	s, f, err := decode(bytes.NewReader(data), format)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return f.SampleRate.D(s.Len()), nil
}

// skipID3v2 positions r after an ID3v2 tag, or at the start if there is none.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	if n < 10 || string(header[:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe integer: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

// nopCloser keeps the decoder from closing a source the player owns while
// still exposing Seek.
type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }
