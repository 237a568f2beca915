package domain

import "context"

type Address struct {
	ID      int64  `json:"id"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	UserID  int64  `json:"user_id"`
}

type AddressRepository interface {
	CreateAddress(ctx context.Context, address *Address) (*Address, error)
	GetAddressByID(ctx context.Context, id int64) (*Address, error)
	ListAddressesByUser(ctx context.Context, userID int64) ([]Address, error)
	DeleteAddress(ctx context.Context, id int64) error
}
