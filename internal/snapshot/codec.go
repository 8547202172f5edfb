// Package snapshot persists a consistent image of the document store and
// inverted index. The binary layout is a fixed header, a JSON body and a
// CRC32 footer over the body.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

// MagicBytes identifies a snapshot ("TSNP").
const (
	MagicBytes    uint32 = 0x54534e50
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 4
)

var (
	// ErrNotFound is returned by Load when no snapshot exists under a name.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt is returned when a snapshot fails header or checksum checks.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Image is everything needed to rebuild an engine.
type Image struct {
	NextID    docstore.DocumentID `json:"next_id"`
	Documents []docstore.Document `json:"documents"`
	Terms     []index.TermEntry   `json:"terms"`
	CreatedAt time.Time           `json:"created_at"`
}

type header struct {
	Magic     uint32
	Version   uint32
	DocCount  uint32
	TermCount uint32
	CreatedAt int64
	BodySize  int64
}

// Encode writes img to w.
func Encode(w io.Writer, img *Image) error {
	body, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("marshaling snapshot body: %w", err)
	}
	h := header{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		DocCount:  uint32(len(img.Documents)),
		TermCount: uint32(len(img.Terms)),
		CreatedAt: img.CreatedAt.Unix(),
		BodySize:  int64(len(body)),
	}
	headerBytes := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(headerBytes[0:4], h.Magic)
	binary.LittleEndian.PutUint32(headerBytes[4:8], h.Version)
	binary.LittleEndian.PutUint32(headerBytes[8:12], h.DocCount)
	binary.LittleEndian.PutUint32(headerBytes[12:16], h.TermCount)
	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(h.BodySize))
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer, crc32.ChecksumIEEE(body))
	if _, err := w.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	return nil
}

// Decode reads an image written by Encode.
func Decode(r io.Reader) (*Image, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("reading header: %w: %w", ErrCorrupt, err)
	}
	h := header{
		Magic:     binary.LittleEndian.Uint32(headerBytes[0:4]),
		Version:   binary.LittleEndian.Uint32(headerBytes[4:8]),
		DocCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		TermCount: binary.LittleEndian.Uint32(headerBytes[12:16]),
		CreatedAt: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		BodySize:  int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
	}
	if h.Magic != MagicBytes {
		return nil, fmt.Errorf("bad magic bytes %x: %w", h.Magic, ErrCorrupt)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported version %d: %w", h.Version, ErrCorrupt)
	}
	if h.BodySize < 0 {
		return nil, fmt.Errorf("negative body size: %w", ErrCorrupt)
	}
	// BodySize is not covered by the checksum, so the buffer grows with what
	// the reader actually yields rather than trusting the header.
	var bodyBuf bytes.Buffer
	if n, err := io.CopyN(&bodyBuf, r, h.BodySize); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading body (%d of %d bytes): %w: %w", n, h.BodySize, ErrCorrupt, err)
	}
	body := bodyBuf.Bytes()
	footer := make([]byte, FooterSize)
	if _, err := io.ReadFull(r, footer); err != nil {
		return nil, fmt.Errorf("reading footer: %w: %w", ErrCorrupt, err)
	}
	if want, got := binary.LittleEndian.Uint32(footer), crc32.ChecksumIEEE(body); want != got {
		return nil, fmt.Errorf("checksum mismatch %08x != %08x: %w", got, want, ErrCorrupt)
	}
	var img Image
	if err := json.Unmarshal(body, &img); err != nil {
		return nil, fmt.Errorf("parsing body: %w: %w", ErrCorrupt, err)
	}
	if uint32(len(img.Documents)) != h.DocCount || uint32(len(img.Terms)) != h.TermCount {
		return nil, fmt.Errorf("header counts disagree with body: %w", ErrCorrupt)
	}
	return &img, nil
}

// Marshal encodes img into a byte slice for key/value and row storage.
func Marshal(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(data []byte) (*Image, error) {
	return Decode(bytes.NewReader(data))
}
