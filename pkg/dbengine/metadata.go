package dbengine

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siodb/siodb/pkg/types"
)

const metadataFileName = ".metadata"

// currentMetadataVersion and currentSchemaVersion are the only version
// pair this build understands; Database_Common.cpp's openMetadataFile
// rejects anything newer and anything with a different schema version
// outright, with no in-place upgrade path implemented yet either.
const currentMetadataVersion uint32 = 1
const currentSchemaVersion uint32 = 1

const metadataFileSize = 4 + 4 + 8 // version + schema version + creator user id

// databaseMetadata is the fixed-size versioned header written once at
// database creation and memory-mapped on every open, mirroring
// DatabaseMetadata's role in the original engine: a quick sanity check
// that this data directory is a database this build can actually read,
// performed before a single catalog table is touched.
type databaseMetadata struct {
	Version       uint32
	SchemaVersion uint32
	CreatorUserID types.UserID
}

func (m databaseMetadata) marshal() []byte {
	buf := make([]byte, metadataFileSize)
	binary.LittleEndian.PutUint32(buf[0:4], m.Version)
	binary.LittleEndian.PutUint32(buf[4:8], m.SchemaVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.CreatorUserID))
	return buf
}

func unmarshalDatabaseMetadata(buf []byte) (databaseMetadata, error) {
	if len(buf) < metadataFileSize {
		return databaseMetadata{}, fmt.Errorf("dbengine: metadata file is truncated")
	}
	return databaseMetadata{
		Version:       binary.LittleEndian.Uint32(buf[0:4]),
		SchemaVersion: binary.LittleEndian.Uint32(buf[4:8]),
		CreatorUserID: types.UserID(binary.LittleEndian.Uint64(buf[8:16])),
	}, nil
}

func metadataFilePath(dir string) string {
	return filepath.Join(dir, metadataFileName)
}

// openOrCreateMetadataFile memory-maps dir's versioned metadata header,
// creating and initializing it on first run. It validates the mapped
// header's version and schema version exactly as openMetadataFile does:
// newer than this build understands, or a schema version that doesn't
// match exactly, is corruption, not a difference to tolerate silently.
func openOrCreateMetadataFile(dir string, creatorUserID types.UserID) (*mappedMetadataFile, error) {
	path := metadataFilePath(dir)

	firstRun := true
	if _, err := os.Stat(path); err == nil {
		firstRun = false
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("dbengine: stat metadata file %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("dbengine: open metadata file %s: %w", path, err)
	}

	if firstRun {
		initial := databaseMetadata{
			Version:       currentMetadataVersion,
			SchemaVersion: currentSchemaVersion,
			CreatorUserID: creatorUserID,
		}
		if _, err := f.WriteAt(initial.marshal(), 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("dbengine: write metadata file %s: %w", path, err)
		}
	}

	mapped, err := mapMetadataFile(f, metadataFileSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dbengine: map metadata file %s: %w", path, err)
	}

	meta, err := unmarshalDatabaseMetadata(mapped.bytes())
	if err != nil {
		mapped.close()
		return nil, fmt.Errorf("dbengine: %s: %w", path, err)
	}
	if meta.Version > currentMetadataVersion {
		mapped.close()
		return nil, fmt.Errorf("dbengine: %s: unsupported metadata version %d", path, meta.Version)
	}
	if meta.SchemaVersion != currentSchemaVersion {
		mapped.close()
		return nil, fmt.Errorf("dbengine: %s: schema version %d does not match expected %d", path, meta.SchemaVersion, currentSchemaVersion)
	}

	return mapped, nil
}
