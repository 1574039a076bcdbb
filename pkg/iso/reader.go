package iso

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadTrack finds the `moov` box of an MP4 file, picks the first track with
// sample entry format and reads all its samples.
func ReadTrack(r io.ReaderAt, size int64, format string) ([]*Sample, error) {
	moov, err := readMoov(r, size)
	if err != nil {
		return nil, err
	}

	tracks, err := DecodeTracks(moov)
	if err != nil {
		return nil, fmt.Errorf("iso: decode moov: %w", err)
	}

	track := FindTrack(tracks, format)
	if track == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTrack, format)
	}

	samples := track.Samples()
	for _, sample := range samples {
		if sample.Offset < 0 || int64(sample.Size) > size-sample.Offset {
			return nil, fmt.Errorf("iso: sample at %d: %w", sample.Offset, io.ErrUnexpectedEOF)
		}
		sample.Data = make([]byte, sample.Size)
		if _, err = r.ReadAt(sample.Data, sample.Offset); err != nil {
			return nil, fmt.Errorf("iso: sample at %d: %w", sample.Offset, err)
		}
	}

	return samples, nil
}

// readMoov walks the top level boxes by header only, so the media data is
// never loaded.
func readMoov(r io.ReaderAt, size int64) ([]byte, error) {
	header := make([]byte, 16)

	for offset := int64(0); offset+8 <= size; {
		if _, err := r.ReadAt(header[:8], offset); err != nil {
			return nil, err
		}

		boxSize := int64(binary.BigEndian.Uint32(header))
		name := string(header[4:8])
		headerSize := int64(8)

		switch boxSize {
		case 0:
			boxSize = size - offset
		case 1:
			if _, err := r.ReadAt(header[8:16], offset+8); err != nil {
				return nil, err
			}
			boxSize = int64(binary.BigEndian.Uint64(header[8:]))
			headerSize = 16
		}

		if boxSize < headerSize || boxSize > size-offset {
			return nil, fmt.Errorf("iso: box %q at %d: %w", name, offset, io.ErrUnexpectedEOF)
		}

		if name == Moov {
			moov := make([]byte, boxSize-headerSize)
			if _, err := r.ReadAt(moov, offset+headerSize); err != nil {
				return nil, err
			}
			return moov, nil
		}

		offset += boxSize
	}

	return nil, fmt.Errorf("%w: no moov box", ErrNoTrack)
}
