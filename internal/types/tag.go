package types

import "fmt"

// TypeClass separates coil reads from register reads. Tags of different
// classes never share a request block.
type TypeClass string

const (
	ClassCoil     TypeClass = "coil"
	ClassRegister TypeClass = "register"
)

// Tag is one module-qualified point reduced to its address footprint.
type Tag struct {
	Name           string    `json:"name"`
	Address        int       `json:"address"`
	RegisterLength int       `json:"register_length"`
	Type           PointType `json:"type"`
	TypeClass      TypeClass `json:"type_class"`
	ArrayLength    int       `json:"array_length"`
}

// End returns the first address past the tag.
func (t Tag) End() int {
	return t.Address + t.RegisterLength
}

// QualifiedName returns "{propertyName}_M{module}".
func QualifiedName(property string, module int) string {
	return fmt.Sprintf("%s_M%d", property, module)
}

// RequestBlock is one batched read covering every included tag.
type RequestBlock struct {
	StartAddress int   `json:"start_address"`
	Length       int   `json:"length"`
	IncludedTags []Tag `json:"included_tags"`
}

// End returns the first address past the block.
func (b RequestBlock) End() int {
	return b.StartAddress + b.Length
}

// Offset returns the position of tag inside the block's read buffer.
func (b RequestBlock) Offset(t Tag) int {
	return t.Address - b.StartAddress
}

// Contains reports whether the tag's whole footprint lies inside the block.
func (b RequestBlock) Contains(t Tag) bool {
	return t.Address >= b.StartAddress && t.End() <= b.End()
}

// Class reports the address space of the block's tags.
func (b RequestBlock) Class() TypeClass {
	if len(b.IncludedTags) == 0 {
		return ClassRegister
	}
	return b.IncludedTags[0].TypeClass
}
