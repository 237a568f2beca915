package usecase

import (
	"context"

	"fulfillment_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type UserUseCase interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, count, page int, filter domain.UserFilter) ([]domain.User, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
	GetAddressByID(ctx context.Context, id int64) (*domain.Address, error)
	ListAddressesByUser(ctx context.Context, userID int64) ([]domain.Address, error)
	DeleteAddress(ctx context.Context, id int64) error
}

type userUseCase struct {
	userRepo    domain.UserRepository
	addressRepo domain.AddressRepository
	log         *logrus.Logger
}

func NewUserUseCase(userRepo domain.UserRepository, addressRepo domain.AddressRepository, logger *logrus.Logger) UserUseCase {
	return &userUseCase{
		userRepo:    userRepo,
		addressRepo: addressRepo,
		log:         logger,
	}
}

func (uc *userUseCase) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.Username == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "cannot be empty"}
	}
	if user.Email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "cannot be empty"}
	}

	created, err := uc.userRepo.CreateUser(ctx, user)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create user '%s': %v", user.Username, err)
		return nil, err
	}
	uc.log.Infof("Use Case: User '%s' created successfully with ID %d", created.Username, created.ID)
	return created, nil
}

func (uc *userUseCase) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.userRepo.GetUserByID(ctx, id)
}

func (uc *userUseCase) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if update.Username != nil && *update.Username == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "cannot be empty"}
	}
	if update.Email != nil && *update.Email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "cannot be empty"}
	}
	return uc.userRepo.UpdateUser(ctx, id, update)
}

func (uc *userUseCase) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.userRepo.DeleteUser(ctx, id)
}

func (uc *userUseCase) ListUsers(ctx context.Context, count, page int, filter domain.UserFilter) ([]domain.User, error) {
	return uc.userRepo.GetUsersByFilter(ctx, count, page, filter)
}

func (uc *userUseCase) CountUsers(ctx context.Context) (int64, error) {
	return uc.userRepo.CountUsers(ctx)
}

func (uc *userUseCase) CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error) {
	if address.UserID <= 0 {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	if address.Street == "" || address.City == "" || address.ZipCode == "" || address.Country == "" {
		return nil, &domain.ValidationError{Field: "address", Reason: "street, city, zip_code and country are required"}
	}
	return uc.addressRepo.CreateAddress(ctx, address)
}

func (uc *userUseCase) GetAddressByID(ctx context.Context, id int64) (*domain.Address, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.addressRepo.GetAddressByID(ctx, id)
}

func (uc *userUseCase) ListAddressesByUser(ctx context.Context, userID int64) ([]domain.Address, error) {
	if userID <= 0 {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	return uc.addressRepo.ListAddressesByUser(ctx, userID)
}

func (uc *userUseCase) DeleteAddress(ctx context.Context, id int64) error {
	if id <= 0 {
		return &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return uc.addressRepo.DeleteAddress(ctx, id)
}
