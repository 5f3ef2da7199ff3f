package sysdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/siodb/siodb/pkg/catalog"
)

const initFlagFileName = ".initialized"
const objectsInfoFileName = "objects_info"

// SystemObjectsInfoClassUUID identifies the SystemObjectsInfo file's
// class header, the same way CipherKeyRecord identifies its own file.
var SystemObjectsInfoClassUUID = uuid.MustParse("9c6b6e9a-9e9c-4a7b-9e3a-7c6a5e2b3c1d")

const systemObjectsInfoClassVersion = 0

func initFlagPath(dir string) string {
	return filepath.Join(dir, initFlagFileName)
}

func objectsInfoPath(dir string) string {
	return filepath.Join(dir, objectsInfoFileName)
}

// initFlag is the content of the init-flag file written once, at the end
// of a successful first-run bootstrap: the instance name, the system
// database's UUID, and its creation timestamp, cross-checked against the
// configured instance on every later startup.
type initFlag struct {
	Name      string
	UUID      uuid.UUID
	CreatedAt int64
}

func (f initFlag) marshal() []byte {
	buf := catalog.EncodeString(nil, f.Name)
	idBytes, _ := f.UUID.MarshalBinary()
	buf = append(buf, idBytes...)
	buf = catalog.EncodeVarint(buf, uint64(f.CreatedAt))
	return buf
}

func decodeInitFlag(buf []byte) (initFlag, error) {
	var f initFlag
	name, n, err := catalog.DecodeString(buf)
	if err != nil {
		return initFlag{}, fmt.Errorf("sysdb: decode init flag name: %w", err)
	}
	f.Name = name
	buf = buf[n:]

	if len(buf) < 16 {
		return initFlag{}, fmt.Errorf("sysdb: truncated init flag UUID")
	}
	if err := f.UUID.UnmarshalBinary(buf[:16]); err != nil {
		return initFlag{}, fmt.Errorf("sysdb: decode init flag UUID: %w", err)
	}
	buf = buf[16:]

	createdAt, _, err := catalog.DecodeVarint(buf)
	if err != nil {
		return initFlag{}, fmt.Errorf("sysdb: decode init flag timestamp: %w", err)
	}
	f.CreatedAt = int64(createdAt)
	return f, nil
}

func writeInitFlag(dir string, f initFlag) error {
	return os.WriteFile(initFlagPath(dir), f.marshal(), 0600)
}

func readInitFlag(dir string) (initFlag, error) {
	data, err := os.ReadFile(initFlagPath(dir))
	if err != nil {
		return initFlag{}, fmt.Errorf("sysdb: read init flag: %w", err)
	}
	return decodeInitFlag(data)
}

// systemObjectsInfo cross-links every SYS_* table's fixed id to its name,
// so a cold start can validate the table set without reopening each
// table's own self-describing schema row first.
type systemObjectsInfo struct {
	tables []struct {
		ID   uint64
		Name string
	}
}

func newSystemObjectsInfo() systemObjectsInfo {
	info := systemObjectsInfo{}
	for _, t := range systemTableOrder {
		info.tables = append(info.tables, struct {
			ID   uint64
			Name string
		}{ID: uint64(t.id), Name: t.name})
	}
	return info
}

func (info systemObjectsInfo) marshal() []byte {
	header := catalog.ClassHeader{ClassUUID: SystemObjectsInfoClassUUID, Version: systemObjectsInfoClassVersion}
	buf := make([]byte, 0, header.Size()+8)
	buf = header.Marshal(buf)
	buf = catalog.EncodeVarint(buf, uint64(len(info.tables)))
	for _, t := range info.tables {
		buf = catalog.EncodeVarint(buf, t.ID)
		buf = catalog.EncodeString(buf, t.Name)
	}
	return buf
}

func decodeSystemObjectsInfo(buf []byte) (systemObjectsInfo, error) {
	_, headerLen, err := catalog.DecodeClassHeader(buf, SystemObjectsInfoClassUUID, systemObjectsInfoClassVersion)
	if err != nil {
		return systemObjectsInfo{}, fmt.Errorf("sysdb: objects info: %w", err)
	}
	rest := buf[headerLen:]
	count, n, err := catalog.DecodeVarint(rest)
	if err != nil {
		return systemObjectsInfo{}, fmt.Errorf("sysdb: objects info count: %w", err)
	}
	rest = rest[n:]

	var info systemObjectsInfo
	for i := uint64(0); i < count; i++ {
		id, n, err := catalog.DecodeVarint(rest)
		if err != nil {
			return systemObjectsInfo{}, fmt.Errorf("sysdb: objects info entry %d id: %w", i, err)
		}
		rest = rest[n:]
		name, n, err := catalog.DecodeString(rest)
		if err != nil {
			return systemObjectsInfo{}, fmt.Errorf("sysdb: objects info entry %d name: %w", i, err)
		}
		rest = rest[n:]
		info.tables = append(info.tables, struct {
			ID   uint64
			Name string
		}{ID: id, Name: name})
	}
	return info, nil
}

func writeSystemObjectsInfo(dir string) error {
	return os.WriteFile(objectsInfoPath(dir), newSystemObjectsInfo().marshal(), 0600)
}

func readSystemObjectsInfo(dir string) (systemObjectsInfo, error) {
	data, err := os.ReadFile(objectsInfoPath(dir))
	if err != nil {
		return systemObjectsInfo{}, fmt.Errorf("sysdb: read objects info: %w", err)
	}
	return decodeSystemObjectsInfo(data)
}
