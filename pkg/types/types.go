package types

import (
	"time"

	"github.com/google/uuid"
)

// Instance is the process-wide root: a single data directory governed by
// one master cipher. It is created or loaded once at startup and torn down
// at shutdown.
type Instance struct {
	Name            string
	UUID            uuid.UUID
	DataDir         string
	MasterCipherID  string
	MasterCipherKey []byte // optional; nil means the "none" cipher
	CreatedAt       time.Time
}

// DatabaseID identifies a database. 1 is reserved for the system database.
type DatabaseID uint32

// SystemDatabaseID is the reserved id of the system database.
const SystemDatabaseID DatabaseID = 1

// SystemDatabaseUUID is the well-known UUID of the system database's data
// directory, fixed across every instance the way SystemDatabaseID is
// fixed across every catalog. The all-zero value follows the same
// well-known-constant convention as blockstore.GenesisDigest.
var SystemDatabaseUUID = uuid.Nil

// SystemDatabaseName is the system database's fixed, reserved name.
const SystemDatabaseName = "SYS"

// Database owns tables; created by an authenticated user holding
// CREATE-on-database permission.
type Database struct {
	ID            DatabaseID
	UUID          uuid.UUID
	Name          string
	CipherID      string
	CipherKey     []byte
	MaxTableCount uint32
	Description   string
	CreatedAt     time.Time
}

// TableID identifies a table within a database.
type TableID uint32

// TableType distinguishes disk-resident from memory-resident tables.
type TableType int

const (
	TableTypeDisk TableType = iota
	TableTypeMemory
)

func (t TableType) String() string {
	switch t {
	case TableTypeDisk:
		return "disk"
	case TableTypeMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Table owns columns and indices. Rows are addressed by a 64-bit TRID
// split into a system range (high bits) and a user range (low bits).
type Table struct {
	ID              TableID
	DatabaseID      DatabaseID
	Type            TableType
	Name            string
	FirstUserTRID   uint64
	CurrentColSetID uint64
	Description     string
}

// TRID is a Table Row Id: a 64-bit row identifier split into a system
// (high) range reserved for catalog bootstrap rows and a user (low) range
// assigned to ordinary inserts.
type TRID uint64

// ColumnSetID identifies a column-set: the ordered membership of columns
// (by column id and column-definition id) that defines a table's current
// row shape. A table evolves through successive column-sets as its schema
// changes; only the current one is in effect.
type ColumnSetID uint64

type ColumnSet struct {
	ID      ColumnSetID
	TableID TableID
	Columns []ColumnSetColumn
}

// ColumnSetColumn is one (column, column-definition) pair participating in
// a ColumnSet, in membership order.
type ColumnSetColumn struct {
	ColumnSetID        ColumnSetID
	ColumnID           ColumnID
	ColumnDefinitionID ColumnDefinitionID
}

// ColumnID identifies a column within a table.
type ColumnID uint64

// ColumnDataType enumerates the column data types the storage core is
// aware of at the catalog level; interpretation of the bytes within a
// block belongs to the (out-of-scope) query engine.
type ColumnDataType int

const (
	DataTypeBool ColumnDataType = iota
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeInt64
	DataTypeUInt8
	DataTypeUInt16
	DataTypeUInt32
	DataTypeUInt64
	DataTypeFloat
	DataTypeDouble
	DataTypeText
	DataTypeBinary
	DataTypeTimestamp
)

// ColumnState tracks a column's lifecycle as constraints evolve around it.
type ColumnState int

const (
	ColumnStateCreating ColumnState = iota
	ColumnStateActive
	ColumnStateDeleted
)

// Column owns a chain of ColumnDataBlocks on disk.
type Column struct {
	ID                    ColumnID
	TableID               TableID
	Name                  string
	DataType              ColumnDataType
	State                 ColumnState
	DataBlockDataAreaSize uint32
}

// ColumnDefinitionID identifies a column-definition: a version of a
// column's constraint set. Columns evolve through column-definitions as
// constraints are added or removed, without changing the column's identity.
type ColumnDefinitionID uint64

type ColumnDefinition struct {
	ID       ColumnDefinitionID
	ColumnID ColumnID
}

// ConstraintID identifies a named constraint. Names are unique within a
// database.
type ConstraintID uint64

// ConstraintState mirrors the original source's ConstraintState.h.
type ConstraintState int

const (
	ConstraintStateActive ConstraintState = iota
	ConstraintStateDeleted
)

type Constraint struct {
	ID                   ConstraintID
	Name                 string
	State                ConstraintState
	TableID              TableID
	ColumnID             ColumnID // 0 if table-level
	ConstraintDefinition ConstraintDefinitionID
}

// ConstraintDefinitionID identifies a constraint-definition, shared across
// every Constraint with identical (type, expression) semantics.
type ConstraintDefinitionID uint64

// ConstraintType enumerates the constraint kinds the catalog records.
type ConstraintType int

const (
	ConstraintTypeNotNull ConstraintType = iota
	ConstraintTypeDefault
	ConstraintTypeUnique
	ConstraintTypeReferences
	ConstraintTypeCheck
)

// ConstraintDefinition is de-duplicated across constraints with identical
// (Type, Expression). Hash is the xxHash64 of Expression alone; Type is
// not hashed and is compared separately.
type ConstraintDefinition struct {
	ID         ConstraintDefinitionID
	Type       ConstraintType
	Expression string
	Hash       uint64
}

// IndexID identifies an index within a table.
type IndexID uint64

// IndexType enumerates index kinds. Only the linear variants are backed by
// a real implementation; B+Tree and Hash are reserved and stubbed per
// Open Question (a).
type IndexType int

const (
	IndexTypeLinear IndexType = iota
	IndexTypeBTree
	IndexTypeHash
)

type IndexColumn struct {
	ColumnID   ColumnID
	Descending bool
}

type Index struct {
	ID           IndexID
	TableID      TableID
	Type         IndexType
	Unique       bool
	Name         string
	Columns      []IndexColumn
	DataFileSize uint64
}

// ColumnDataBlockState is a block's position in its creating → current →
// available → closing → closed lifecycle. At most one block per column may
// be in state Current at a time.
type ColumnDataBlockState int

const (
	ColumnDataBlockStateCreating ColumnDataBlockState = iota
	ColumnDataBlockStateCurrent
	ColumnDataBlockStateAvailable
	ColumnDataBlockStateClosing
	ColumnDataBlockStateClosed
)

func (s ColumnDataBlockState) String() string {
	switch s {
	case ColumnDataBlockStateCreating:
		return "creating"
	case ColumnDataBlockStateCurrent:
		return "current"
	case ColumnDataBlockStateAvailable:
		return "available"
	case ColumnDataBlockStateClosing:
		return "closing"
	case ColumnDataBlockStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ColumnDataBlockID fully qualifies a column data block together with its
// owning database/table/column.
type ColumnDataBlockID struct {
	DatabaseUUID uuid.UUID
	TableID      TableID
	ColumnID     ColumnID
	BlockID      uint64
}

// UserID identifies a user. The super-user always has id 1 and can never
// be dropped or fully deactivated.
type UserID uint64

// SuperUserID is the reserved id of the instance super-user.
const SuperUserID UserID = 1

type User struct {
	ID          UserID
	Name        string
	RealName    string // optional
	Description string // optional
	Active      bool
	CreatedAt   time.Time
}

// UserAccessKeyID identifies a user's public-key credential.
type UserAccessKeyID uint64

// SuperUserInitialAccessKeyID is the reserved id of the super-user's first
// access key; the system bootstrap sequence skips this TRID so it's
// available even though the key itself is created out of band.
const SuperUserInitialAccessKeyID UserAccessKeyID = 1

type UserAccessKey struct {
	ID          UserAccessKeyID
	UserID      UserID
	Name        string
	PublicKey   []byte
	Description string // optional
	Active      bool
	CreatedAt   time.Time
}

// UserTokenID identifies a session token credential.
type UserTokenID uint64

type UserToken struct {
	ID                 UserTokenID
	UserID             UserID
	Name               string
	Value              []byte
	Description        string    // optional
	ExpirationTimestamp time.Time // optional, zero means no expiration
	CreatedAt          time.Time
}

// DatabaseObjectType enumerates the kinds of object a permission grant can
// target, mirroring the original source's DatabaseObjectType.h.
type DatabaseObjectType int

const (
	DatabaseObjectTypeInstance DatabaseObjectType = iota
	DatabaseObjectTypeDatabase
	DatabaseObjectTypeTable
	DatabaseObjectTypeSingleColumnReference
	DatabaseObjectTypeIndex
	DatabaseObjectTypeConstraint
	DatabaseObjectTypeTrigger
	DatabaseObjectTypeProcedure
	DatabaseObjectTypeFunction
)

// UserPermissionID identifies a granted permission record.
type UserPermissionID uint64

type UserPermission struct {
	ID               UserPermissionID
	UserID           UserID
	DatabaseID       DatabaseID
	ObjectType       DatabaseObjectType
	ObjectID         uint64 // 0 means "all objects of this type in the database"
	Permissions      PermissionType
	GrantOptions     PermissionType
	GrantedByUserID  UserID
}

// PermissionType is a bitmask of grantable permissions, carried over
// verbatim from the original source's PermissionType.h.
type PermissionType uint64

const (
	PermissionSelect     PermissionType = 0x1
	PermissionInsert     PermissionType = 0x2
	PermissionUpdate     PermissionType = 0x4
	PermissionDelete     PermissionType = 0x8
	PermissionReferences PermissionType = 0x10
	PermissionUsage      PermissionType = 0x20
	PermissionUnder      PermissionType = 0x40
	PermissionTrigger    PermissionType = 0x80
	PermissionExecute    PermissionType = 0x100
	PermissionCreate     PermissionType = 0x200
	PermissionAlter      PermissionType = 0x400
	PermissionDrop       PermissionType = 0x800
	PermissionShow       PermissionType = 0x1000
)

// Has reports whether every bit set in p is also set in the receiver.
func (perms PermissionType) Has(p PermissionType) bool {
	return perms&p == p
}

// With returns perms with p's bits set.
func (perms PermissionType) With(p PermissionType) PermissionType {
	return perms | p
}
