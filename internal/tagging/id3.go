package tagging

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
)

// id3Writer edits ID3v2 frames (TIT2, TPE1, TALB, APIC). Files without a tag
// get a fresh v2.4 tag.
type id3Writer struct{}

func (id3Writer) WriteTags(path string, tags Tags) error {
	return editID3(path, func(tag *id3v2.Tag) {
		tag.SetTitle(tags.Title)
		tag.SetArtist(tags.Artist)
		tag.SetAlbum(tags.Album)
	})
}

func (id3Writer) WriteCover(path string, jpeg []byte) error {
	return editID3(path, func(tag *id3v2.Tag) {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    coverMIME,
			PictureType: id3v2.PTFrontCover,
			Description: coverDescription,
			Picture:     jpeg,
		})
	})
}

func editID3(path string, edit func(*id3v2.Tag)) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	edit(tag)
	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}
