package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

func sampleImage() *Image {
	return &Image{
		NextID: 4,
		Documents: []docstore.Document{
			{ID: 1, Text: "the cat sat", CreatedAt: time.Unix(1700000000, 0).UTC()},
			{ID: 3, Text: "the dog", Fields: map[string]string{"lang": "en"}, CreatedAt: time.Unix(1700000001, 0).UTC()},
		},
		Terms: []index.TermEntry{
			{Term: "cat", Postings: index.PostingList{{DocID: 1, Frequency: 1, Positions: []int{1}}}},
			{Term: "the", Postings: index.PostingList{
				{DocID: 1, Frequency: 1, Positions: []int{0}},
				{DocID: 3, Frequency: 1, Positions: []int{0}},
			}},
		},
		CreatedAt: time.Unix(1700000002, 0).UTC(),
	}
}

func TestEncodeDecode(t *testing.T) {
	img := sampleImage()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestDecodeDetectsCorruption(t *testing.T) {
	data, err := Marshal(sampleImage())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"flipped body byte", func(b []byte) []byte { b[HeaderSize+3] ^= 0x01; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-2] }},
		{"empty", func([]byte) []byte { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.mutate(bytes.Clone(data)))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestDecodeRejectsOversizedBodyLength(t *testing.T) {
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(hdr[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(hdr[24:32], 1<<62)

	var err error
	require.NotPanics(t, func() {
		_, err = Decode(bytes.NewReader(append(hdr, []byte(`{"next_id":1}`)...)))
	})
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	st := NewFileStore(t.TempDir())

	_, err := st.Load(ctx, "default")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Save(ctx, "default", sampleImage()))
	got, err := st.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, sampleImage(), got)

	img := sampleImage()
	img.NextID = 10
	require.NoError(t, st.Save(ctx, "default", img), "overwrite")
	got, err = st.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, docstore.DocumentID(10), got.NextID)
	assert.NoFileExists(t, st.Path("default")+".tmp")
}

type failingCloseFile struct {
	*os.File
}

func (f failingCloseFile) Close() error {
	f.File.Close()
	return errors.New("disk quota exceeded")
}

func TestFileStoreSaveFailsWhenCloseFails(t *testing.T) {
	ctx := context.Background()
	st := NewFileStore(t.TempDir())
	require.NoError(t, st.Save(ctx, "default", sampleImage()))

	st.create = func(path string) (tempFile, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return failingCloseFile{f}, nil
	}
	img := sampleImage()
	img.NextID = 42
	err := st.Save(ctx, "default", img)
	require.ErrorContains(t, err, "disk quota exceeded")
	assert.NoFileExists(t, st.Path("default")+".tmp")

	got, err := st.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, sampleImage().NextID, got.NextID, "previous snapshot untouched")
}

func TestFileStoreMissingDirectory(t *testing.T) {
	st := NewFileStore(t.TempDir() + "/absent")
	_, err := st.Load(context.Background(), "default")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()
	st, err := OpenBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Load(ctx, "default")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Save(ctx, "default", sampleImage()))
	got, err := st.Load(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, sampleImage(), got)
	assert.Equal(t, "badger", st.Backend())
}
