// Package mfttest provides an in-memory fake of internal/mft.Reader so
// internal/scanner and internal/vfshandler can be tested without a real
// NTFS volume or device image.
package mfttest

import (
	"time"

	"github.com/ununlink/ununlink/internal/mft"
)

// Entry is one record a Fake Reader serves.
type Entry struct {
	InUse    bool
	IsDir    bool
	Size     uint64
	Path     string // fully reconstructed path, or basename if PathOK is false
	PathOK   bool
	Data     []byte
	Created  *time.Time
	Modified *time.Time
	Accessed *time.Time
}

// Fake implements mft.Reader and mft.PathReconstructor over a plain
// slice of Entry, indexed by record number.
type Fake struct {
	Records []Entry
}

var _ mft.Reader = (*Fake)(nil)
var _ mft.PathReconstructor = (*Fake)(nil)

// MaxRecord implements mft.Reader.
func (f *Fake) MaxRecord() uint64 {
	return uint64(len(f.Records))
}

// GetRecord implements mft.Reader.
func (f *Fake) GetRecord(n uint64) (mft.Record, bool) {
	if n >= uint64(len(f.Records)) {
		return mft.Record{}, false
	}
	e := f.Records[n]
	return mft.Record{
		Number:   n,
		InUse:    e.InUse,
		IsDir:    e.IsDir,
		Size:     e.Size,
		Created:  e.Created,
		Modified: e.Modified,
		Accessed: e.Accessed,
	}, true
}

// ReadData implements mft.Reader.
func (f *Fake) ReadData(n uint64) ([]byte, error) {
	if n >= uint64(len(f.Records)) {
		return nil, mft.ErrNoData
	}
	e := f.Records[n]
	if e.Data == nil {
		return nil, mft.ErrNoData
	}
	return e.Data, nil
}

// Path implements mft.PathReconstructor by returning the Entry's
// pre-baked Path/PathOK, so tests can exercise both the reconstructable
// and basename-only cases without building a parent chain.
func (f *Fake) Path(rec mft.Record, _ *mft.Cache) (string, bool) {
	if rec.Number >= uint64(len(f.Records)) {
		return "", false
	}
	e := f.Records[rec.Number]
	return e.Path, e.PathOK
}
