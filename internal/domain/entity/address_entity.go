package entity

// Address is a postal address owned by exactly one User. The back-reference
// is the owner's storage id, never a pointer back into the aggregate.
// Apartment and Label are optional.
type Address struct {
	ID        string `json:"id"`
	OwnerID   string `json:"-"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Apartment string `json:"apartment,omitempty"`
	Label     string `json:"label,omitempty"`
}
