package tagging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	mp4tag "github.com/Sorrow446/go-mp4tag"
	"github.com/abema/go-mp4"

	"ucmusic/internal/fileutil"
)

// mp4Writer edits the iTunes-style ilst atoms (©nam, ©ART, ©alb, covr).
type mp4Writer struct{}

func (mp4Writer) WriteTags(path string, tags Tags) error {
	return editMP4(path, &mp4tag.MP4Tags{
		Title:  tags.Title,
		Artist: tags.Artist,
		Album:  tags.Album,
	})
}

func (mp4Writer) WriteCover(path string, jpeg []byte) error {
	return editMP4(path, &mp4tag.MP4Tags{
		Pictures: []*mp4tag.MP4Picture{{Format: mp4tag.ImageTypeJPEG, Data: jpeg}},
	})
}

// editMP4 merges tags into moov/udta/meta/ilst. mp4tag only rewrites an
// existing item list, so streams without one get an empty list first.
func editMP4(path string, tags *mp4tag.MP4Tags) error {
	if err := ensureItemList(path); err != nil {
		return fmt.Errorf("prepare mp4 metadata: %w", err)
	}

	file, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("open mp4: %w", err)
	}
	defer file.Close()

	if err := file.Write(tags, []string{}); err != nil {
		return fmt.Errorf("write mp4 tags: %w", err)
	}
	return nil
}

func ensureItemList(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	patched, changed, err := insertItemList(data)
	if err != nil || !changed {
		return err
	}
	return fileutil.WriteFileAtomic(path, patched, info.Mode().Perm())
}

var (
	pathMoov = mp4.BoxPath{mp4.BoxTypeMoov()}
	pathUdta = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta()}
	pathMeta = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta()}
	pathIlst = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta(), mp4.BoxTypeIlst()}
	pathStco = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStco()}
	pathCo64 = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeCo64()}
)

// insertItemList appends whatever part of udta/meta/ilst is missing to the
// deepest existing ancestor, grows every ancestor by the inserted size and
// shifts chunk offsets that point past the insertion.
func insertItemList(data []byte) ([]byte, bool, error) {
	r := bytes.NewReader(data)
	var chain []*mp4.BoxInfo
	for _, path := range []mp4.BoxPath{pathMoov, pathUdta, pathMeta, pathIlst} {
		boxes, err := mp4.ExtractBox(r, nil, path)
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", path[len(path)-1], err)
		}
		if len(boxes) == 0 {
			break
		}
		chain = append(chain, boxes[0])
	}
	if len(chain) == 0 {
		return nil, false, errors.New("moov box not present")
	}

	var insert []byte
	var err error
	switch len(chain) {
	case 1:
		var meta []byte
		if meta, err = metaBox(); err == nil {
			insert = encodeBox(mp4.BoxTypeUdta(), meta)
		}
	case 2:
		insert, err = metaBox()
	case 3:
		insert = encodeBox(mp4.BoxTypeIlst(), nil)
	default:
		return data, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	parent := chain[len(chain)-1]
	if parent.ExtendToEOF {
		return nil, false, fmt.Errorf("%s box without explicit size", parent.Type)
	}
	at := parent.Offset + parent.Size
	delta := uint64(len(insert))

	out := make([]byte, 0, len(data)+len(insert))
	out = append(out, data[:at]...)
	out = append(out, insert...)
	out = append(out, data[at:]...)

	for _, box := range chain {
		if err := growBox(out, box, delta); err != nil {
			return nil, false, err
		}
	}
	if err := shiftChunkOffsets(r, out, at, delta); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func metaBox() ([]byte, error) {
	var payload bytes.Buffer
	if _, err := mp4.Marshal(&payload, &mp4.Meta{}, mp4.Context{}); err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	var hdlr bytes.Buffer
	handler := &mp4.Hdlr{HandlerType: [4]byte{'m', 'd', 'i', 'r'}}
	if _, err := mp4.Marshal(&hdlr, handler, mp4.Context{}); err != nil {
		return nil, fmt.Errorf("encode hdlr: %w", err)
	}
	payload.Write(encodeBox(mp4.BoxTypeHdlr(), hdlr.Bytes()))
	payload.Write(encodeBox(mp4.BoxTypeIlst(), nil))
	return encodeBox(mp4.BoxTypeMeta(), payload.Bytes()), nil
}

func encodeBox(boxType mp4.BoxType, payload []byte) []byte {
	header := mp4.EncodeBoxInfo(&mp4.BoxInfo{
		Type: boxType,
		Size: uint64(mp4.SmallHeaderSize + len(payload)),
	})
	return append(header, payload...)
}

// growBox rewrites the size field of a box that starts before the insertion.
func growBox(data []byte, box *mp4.BoxInfo, delta uint64) error {
	size := box.Size + delta
	if box.HeaderSize == mp4.LargeHeaderSize {
		binary.BigEndian.PutUint64(data[box.Offset+mp4.SmallHeaderSize:], size)
		return nil
	}
	if size > math.MaxUint32 {
		return fmt.Errorf("%s box too large", box.Type)
	}
	binary.BigEndian.PutUint32(data[box.Offset:], uint32(size))
	return nil
}

func shiftChunkOffsets(r *bytes.Reader, out []byte, at, delta uint64) error {
	tables, err := mp4.ExtractBoxesWithPayload(r, nil, []mp4.BoxPath{pathStco, pathCo64})
	if err != nil {
		return fmt.Errorf("read chunk offsets: %w", err)
	}
	for _, table := range tables {
		// version/flags and entry count precede the entries.
		pos := table.Info.Offset + table.Info.HeaderSize + 8
		if pos >= at {
			pos += delta
		}
		switch box := table.Payload.(type) {
		case *mp4.Stco:
			for i, offset := range box.ChunkOffset {
				if uint64(offset) < at {
					continue
				}
				shifted := uint64(offset) + delta
				if shifted > math.MaxUint32 {
					return errors.New("chunk offset overflows stco")
				}
				binary.BigEndian.PutUint32(out[pos+uint64(i)*4:], uint32(shifted))
			}
		case *mp4.Co64:
			for i, offset := range box.ChunkOffset {
				if offset >= at {
					binary.BigEndian.PutUint64(out[pos+uint64(i)*8:], offset+delta)
				}
			}
		}
	}
	return nil
}
