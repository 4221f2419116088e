package volunteers

import "github.com/scentdrive/campaign-backend/pkg/contact"

// Address is the house/town/post triplet used to pair orders with
// volunteers living at the same place.
type Address struct {
	HouseBuilding string `json:"house_building"`
	Town          string `json:"town"`
	Post          string `json:"post"`
}

// Normalize trims and collapses whitespace in every part.
func (a Address) Normalize() Address {
	return Address{
		HouseBuilding: contact.CleanField(a.HouseBuilding),
		Town:          contact.CleanField(a.Town),
		Post:          contact.CleanField(a.Post),
	}
}

// Complete reports whether all three parts are non-empty after trimming.
func (a Address) Complete() bool {
	n := a.Normalize()
	return n.HouseBuilding != "" && n.Town != "" && n.Post != ""
}
