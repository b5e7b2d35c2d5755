package domain

import (
	"context"
	"errors"
)

var ErrBundleNotFound = errors.New("bundle_not_found")

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	List(ctx context.Context) []BundleOffering
	Get(ctx context.Context, id string) (BundleOffering, error)
}
