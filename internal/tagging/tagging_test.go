package tagging_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	mp4tag "github.com/Sorrow446/go-mp4tag"
	"github.com/abema/go-mp4"
	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"

	"ucmusic/internal/tagging"
	"ucmusic/internal/testsupport"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestKindForExt(t *testing.T) {
	cases := map[string]tagging.Kind{
		".mp3":     tagging.KindMP3,
		"MP3":      tagging.KindMP3,
		".m4a":     tagging.KindMP4,
		".mp4":     tagging.KindMP4,
		".flac":    tagging.KindFLAC,
		".ogg":     tagging.KindUnsupported,
		".unknown": tagging.KindUnsupported,
		"":         tagging.KindUnsupported,
	}
	for ext, want := range cases {
		if got := tagging.KindForExt(ext); got != want {
			t.Fatalf("KindForExt(%q) = %v, want %v", ext, got, want)
		}
	}
	if got := tagging.KindForPath("/music/1-abc.m4a"); got != tagging.KindMP4 {
		t.Fatalf("KindForPath = %v, want mp4", got)
	}
}

func TestUnsupportedWriter(t *testing.T) {
	writer := tagging.WriterFor(tagging.KindUnsupported)
	if err := writer.WriteTags("x.ogg", tagging.Tags{Title: "t"}); !errors.Is(err, tagging.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := writer.WriteCover("x.ogg", fakeJPEG); !errors.Is(err, tagging.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMP3TagsAndCover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, testsupport.MP3Payload(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	writer := tagging.WriterFor(tagging.KindMP3)
	if err := writer.WriteTags(path, tagging.Tags{Title: "晴天", Artist: "A & B", Album: "Record"}); err != nil {
		t.Fatalf("WriteTags returned error: %v", err)
	}
	if err := writer.WriteCover(path, fakeJPEG); err != nil {
		t.Fatalf("WriteCover returned error: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tag.Close()

	if tag.Title() != "晴天" || tag.Artist() != "A & B" || tag.Album() != "Record" {
		t.Fatalf("unexpected tags title=%q artist=%q album=%q", tag.Title(), tag.Artist(), tag.Album())
	}
	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(frames) != 1 {
		t.Fatalf("expected one picture frame, got %d", len(frames))
	}
	pic, ok := frames[0].(id3v2.PictureFrame)
	if !ok {
		t.Fatalf("unexpected frame type %T", frames[0])
	}
	if pic.MimeType != "image/jpeg" || pic.PictureType != id3v2.PTFrontCover || !bytes.Equal(pic.Picture, fakeJPEG) {
		t.Fatalf("unexpected picture frame %+v", pic)
	}
}

func TestFLACTagsAndCover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	payload := testsupport.FLACPayload()
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	writer := tagging.WriterFor(tagging.KindFLAC)
	tags := tagging.Tags{Title: "Song", Artist: "Artist", Album: "Album"}
	if err := writer.WriteTags(path, tags); err != nil {
		t.Fatalf("WriteTags returned error: %v", err)
	}
	// A second write replaces the fields instead of appending duplicates.
	if err := writer.WriteTags(path, tags); err != nil {
		t.Fatalf("second WriteTags returned error: %v", err)
	}
	if err := writer.WriteCover(path, fakeJPEG); err != nil {
		t.Fatalf("WriteCover returned error: %v", err)
	}

	file, err := flac.ParseFile(path)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if !bytes.Equal(file.Frames, payload[42:]) {
		t.Fatalf("audio frames changed: %x", file.Frames)
	}

	var comments *flacvorbis.MetaDataBlockVorbisComment
	var picture *flacpicture.MetadataBlockPicture
	for _, block := range file.Meta {
		switch block.Type {
		case flac.VorbisComment:
			comments, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatalf("parse comments: %v", err)
			}
		case flac.Picture:
			picture, err = flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatalf("parse picture: %v", err)
			}
		}
	}
	if comments == nil {
		t.Fatal("expected a vorbis comment block")
	}
	for field, want := range map[string]string{
		flacvorbis.FIELD_TITLE:  "Song",
		flacvorbis.FIELD_ARTIST: "Artist",
		flacvorbis.FIELD_ALBUM:  "Album",
	} {
		got, err := comments.Get(field)
		if err != nil {
			t.Fatalf("Get(%s): %v", field, err)
		}
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%s = %v, want [%s]", field, got, want)
		}
	}
	if picture == nil {
		t.Fatal("expected a picture block")
	}
	if picture.PictureType != flacpicture.PictureTypeFrontCover || picture.MIME != "image/jpeg" || !bytes.Equal(picture.ImageData, fakeJPEG) {
		t.Fatalf("unexpected picture %+v", picture)
	}
}

func TestMP4RejectsNonMP4Data(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.m4a")
	if err := os.WriteFile(path, []byte("not an mp4 container"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := tagging.WriterFor(tagging.KindMP4).WriteTags(path, tagging.Tags{Title: "x"}); err == nil {
		t.Fatal("expected error for invalid mp4")
	}
}

func atom(kind string, children ...[]byte) []byte {
	size := 8
	for _, child := range children {
		size += len(child)
	}
	out := make([]byte, 4, size)
	binary.BigEndian.PutUint32(out, uint32(size))
	out = append(out, kind...)
	for _, child := range children {
		out = append(out, child...)
	}
	return out
}

var m4aSamples = []byte("AAC-SAMPLE-DATA")

// m4aFixture builds ftyp, moov and mdat with one chunk offset pointing at the
// samples. udta, when non-nil, is the last child of moov.
func m4aFixture(udta []byte) []byte {
	build := func(offset uint32) []byte {
		table := make([]byte, 12)
		binary.BigEndian.PutUint32(table[4:], 1)
		binary.BigEndian.PutUint32(table[8:], offset)
		trak := atom("trak", atom("mdia", atom("minf", atom("stbl", atom("stco", table)))))
		children := [][]byte{atom("mvhd", make([]byte, 100)), trak}
		if udta != nil {
			children = append(children, udta)
		}
		out := atom("ftyp", []byte("M4A "), make([]byte, 4), []byte("M4A isom"))
		out = append(out, atom("moov", children...)...)
		return append(out, atom("mdat", m4aSamples)...)
	}
	first := build(0)
	return build(uint32(len(first) - len(m4aSamples)))
}

func taggedUdta(title string) []byte {
	hdlr := make([]byte, 25)
	copy(hdlr[8:], "mdir")
	item := atom("\xa9nam", atom("data", []byte{0, 0, 0, 1, 0, 0, 0, 0}, []byte(title)))
	return atom("udta", atom("meta", make([]byte, 4), atom("hdlr", hdlr), atom("ilst", item)))
}

func requireSamplesReachable(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mp4: %v", err)
	}
	tables, err := mp4.ExtractBoxWithPayload(bytes.NewReader(data), nil, mp4.BoxPath{
		mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStco(),
	})
	if err != nil || len(tables) != 1 {
		t.Fatalf("extract stco: %d tables, %v", len(tables), err)
	}
	stco := tables[0].Payload.(*mp4.Stco)
	offset := int(stco.ChunkOffset[0])
	if offset+len(m4aSamples) > len(data) || !bytes.Equal(data[offset:offset+len(m4aSamples)], m4aSamples) {
		t.Fatalf("chunk offset %d no longer points at the samples", offset)
	}
}

func writeAndReadMP4(t *testing.T, fixture []byte) *mp4tag.MP4Tags {
	t.Helper()
	path := filepath.Join(t.TempDir(), "1-abc.m4a")
	if err := os.WriteFile(path, fixture, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	writer := tagging.WriterFor(tagging.KindForPath(path))
	if err := writer.WriteTags(path, tagging.Tags{Title: "Song", Artist: "A & B", Album: "Record"}); err != nil {
		t.Fatalf("WriteTags: %v", err)
	}
	if err := writer.WriteCover(path, fakeJPEG); err != nil {
		t.Fatalf("WriteCover: %v", err)
	}
	requireSamplesReachable(t, path)

	file, err := mp4tag.Open(path)
	if err != nil {
		t.Fatalf("mp4tag.Open: %v", err)
	}
	defer file.Close()
	tags, err := file.Read()
	if err != nil {
		t.Fatalf("read tags: %v", err)
	}
	return tags
}

func TestMP4CreatesItemListWhenMissing(t *testing.T) {
	tags := writeAndReadMP4(t, m4aFixture(nil))

	if tags.Title != "Song" || tags.Artist != "A & B" || tags.Album != "Record" {
		t.Fatalf("unexpected tags %+v", tags)
	}
	if len(tags.Pictures) != 1 || !bytes.Equal(tags.Pictures[0].Data, fakeJPEG) {
		t.Fatalf("expected embedded cover, got %d pictures", len(tags.Pictures))
	}
}

func TestMP4CompletesPartialMetadata(t *testing.T) {
	hdlr := make([]byte, 25)
	copy(hdlr[8:], "mdir")
	fixtures := map[string][]byte{
		"empty udta":   m4aFixture(atom("udta")),
		"meta no ilst": m4aFixture(atom("udta", atom("meta", make([]byte, 4), atom("hdlr", hdlr)))),
	}
	for name, fixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			tags := writeAndReadMP4(t, fixture)
			if tags.Title != "Song" || tags.Album != "Record" {
				t.Fatalf("unexpected tags %+v", tags)
			}
		})
	}
}

func TestMP4ReplacesExistingTitle(t *testing.T) {
	tags := writeAndReadMP4(t, m4aFixture(taggedUdta("Old Title")))

	if tags.Title != "Song" || tags.Artist != "A & B" {
		t.Fatalf("unexpected tags %+v", tags)
	}
	if len(tags.Pictures) != 1 {
		t.Fatalf("expected one cover, got %d", len(tags.Pictures))
	}
}
