package domain

import "context"

type Repository interface {
	// FindBestMatch returns the active rate whose destination code is the
	// longest prefix of number, or nil when no code matches.
	FindBestMatch(ctx context.Context, number string) (*BaseRate, error)
	List(ctx context.Context) ([]BaseRate, error)
	Upsert(ctx context.Context, rate *BaseRate) error
}

type Service interface {
	// Resolve maps a destination number to its wholesale rate.
	Resolve(ctx context.Context, destinationNumber string) (*BaseRate, error)
	List(ctx context.Context) ([]BaseRate, error)
	Save(ctx context.Context, rate *BaseRate) error
}
