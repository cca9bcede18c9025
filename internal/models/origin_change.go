package models

// OriginOp is a change applied to an origin set.
type OriginOp string

const (
	// OriginOpAdd allows an origin.
	OriginOpAdd OriginOp = "add"
	// OriginOpRemove disallows an origin.
	OriginOpRemove OriginOp = "remove"
)

// Valid reports whether op is a known operation.
func (op OriginOp) Valid() bool {
	return op == OriginOpAdd || op == OriginOpRemove
}
