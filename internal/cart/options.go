package cart

import "fmt"

type MilkType string

const (
	MilkWhole  MilkType = "whole"
	MilkSkim   MilkType = "skim"
	MilkOat    MilkType = "oat"
	MilkAlmond MilkType = "almond"
	MilkSoy    MilkType = "soy"
)

func (m MilkType) Valid() bool {
	switch m {
	case MilkWhole, MilkSkim, MilkOat, MilkAlmond, MilkSoy:
		return true
	}
	return false
}

type IceLevel string

const (
	IceNone    IceLevel = "no-ice"
	IceLight   IceLevel = "light-ice"
	IceRegular IceLevel = "regular-ice"
	IceExtra   IceLevel = "extra-ice"
)

func (i IceLevel) Valid() bool {
	switch i {
	case IceNone, IceLight, IceRegular, IceExtra:
		return true
	}
	return false
}

// Options is the customization of a coffee line. Fields left empty mean
// "not chosen"; Options is a comparable value so merge matching is plain ==.
type Options struct {
	Milk MilkType `json:"milk_type,omitempty"`
	Ice  IceLevel `json:"ice_level,omitempty"`
}

func (o Options) IsZero() bool {
	return o == Options{}
}

func (o Options) Validate() error {
	if o.Milk != "" && !o.Milk.Valid() {
		return fmt.Errorf("%w: unknown milk type %q", ErrInvalidOptions, o.Milk)
	}
	if o.Ice != "" && !o.Ice.Valid() {
		return fmt.Errorf("%w: unknown ice level %q", ErrInvalidOptions, o.Ice)
	}
	return nil
}

func sameOptions(a, b *Options) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
