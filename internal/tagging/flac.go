package tagging

import (
	"fmt"
	"io"
	"os"
	"strings"

	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"

	"ucmusic/internal/fileutil"
)

// flacWriter edits Vorbis comments (TITLE, ARTIST, ALBUM) and PICTURE blocks.
type flacWriter struct{}

func (flacWriter) WriteTags(path string, tags Tags) error {
	return editFLAC(path, func(file *flac.File) error {
		comments := flacvorbis.New()
		index := -1
		for i, block := range file.Meta {
			if block.Type != flac.VorbisComment {
				continue
			}
			parsed, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return fmt.Errorf("parse vorbis comment: %w", err)
			}
			comments, index = parsed, i
			break
		}

		comments.Comments = dropFields(comments.Comments,
			flacvorbis.FIELD_TITLE, flacvorbis.FIELD_ARTIST, flacvorbis.FIELD_ALBUM)
		for _, field := range [][2]string{
			{flacvorbis.FIELD_TITLE, tags.Title},
			{flacvorbis.FIELD_ARTIST, tags.Artist},
			{flacvorbis.FIELD_ALBUM, tags.Album},
		} {
			if err := comments.Add(field[0], field[1]); err != nil {
				return fmt.Errorf("add %s: %w", field[0], err)
			}
		}

		block := comments.Marshal()
		if index >= 0 {
			file.Meta[index] = &block
		} else {
			file.Meta = append(file.Meta, &block)
		}
		return nil
	})
}

func (flacWriter) WriteCover(path string, jpeg []byte) error {
	return editFLAC(path, func(file *flac.File) error {
		picture := &flacpicture.MetadataBlockPicture{
			PictureType: flacpicture.PictureTypeFrontCover,
			MIME:        coverMIME,
			Description: coverDescription,
			ImageData:   jpeg,
		}
		block := picture.Marshal()
		file.Meta = append(file.Meta, &block)
		return nil
	})
}

// editFLAC parses metadata blocks with go-flac and keeps the audio frames as
// raw bytes, then rewrites the file atomically.
func editFLAC(path string, edit func(*flac.File) error) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open flac: %w", err)
	}
	file, err := flac.ParseMetadata(src)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("parse flac metadata: %w", err)
	}
	frames, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		return fmt.Errorf("read flac frames: %w", err)
	}
	file.Frames = frames

	if err := edit(file); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, file.Marshal(), 0o644); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

func dropFields(comments []string, keys ...string) []string {
	out := comments[:0]
	for _, comment := range comments {
		keep := true
		for _, key := range keys {
			if len(comment) > len(key) && comment[len(key)] == '=' && strings.EqualFold(comment[:len(key)], key) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, comment)
		}
	}
	return out
}
