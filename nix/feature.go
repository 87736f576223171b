package nix

import (
	"github.com/cockroachdb/errors"
)

// LinkType is how a feature's data relates to the position of its tag.
type LinkType int

// Link types.
const (
	// LinkTagged selects the tagged region of the feature data.
	LinkTagged LinkType = iota
	// LinkUntagged selects all feature data.
	LinkUntagged
	// LinkIndexed selects the row of the feature data matching the position
	// index of a multi-tag.
	LinkIndexed
)

func (l LinkType) String() string {
	switch l {
	case LinkTagged:
		return "tagged"
	case LinkUntagged:
		return "untagged"
	case LinkIndexed:
		return "indexed"
	}
	return "unknown"
}

func (l LinkType) valid() bool {
	return l >= LinkTagged && l <= LinkIndexed
}

// Feature attaches additional data to a Tag or MultiTag.
type Feature struct {
	entity

	data     string
	linkType LinkType
}

// Data returns the feature data, nil when it was deleted.
func (ft *Feature) Data() *DataArray {
	da, _ := ft.file.index[ft.data].(*DataArray)
	return da
}

// SetData replaces the feature data.
func (ft *Feature) SetData(da *DataArray) error {
	if err := checkMember(ft.file, da); err != nil {
		return errors.Wrap(err, "set feature data")
	}
	ft.data = da.id
	ft.touch()
	return nil
}

// LinkType returns the link type.
func (ft *Feature) LinkType() LinkType {
	return ft.linkType
}

// SetLinkType replaces the link type.
func (ft *Feature) SetLinkType(link LinkType) error {
	if !link.valid() {
		return errors.Wrapf(ErrInvalidArgument, "unknown link type %d", link)
	}
	ft.linkType = link
	ft.touch()
	return nil
}
