package model

import "time"

// MaxNameLength is the maximum length of a resource name, in characters,
// after trimming.
const MaxNameLength = 100

// Record is the shape shared by every owner-scoped resource.
type Record struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Field is a named plot of land owned by a user.
type Field Record

// Device is a named controller device owned by a user.
type Device Record

// Resource is the set of owner-scoped resource types.
// Every member has Record as its underlying type, so generic code converts
// with Record(v) and T(rec).
type Resource interface {
	Field | Device
}

// Kind describes where a resource kind lives and how it is named.
type Kind struct {
	// Name is the lowercase singular used in logs and metrics, e.g. "field".
	Name string
	// Label is the singular name used in client messages, e.g. "Field".
	Label string
	// Table is the database table holding the rows; also the collection path under /api.
	Table string
}

// Resource kinds.
var (
	FieldKind  = Kind{Name: "field", Label: "Field", Table: "fields"}
	DeviceKind = Kind{Name: "device", Label: "Device", Table: "devices"}
)
