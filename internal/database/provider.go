package database

import (
	"context"
	"fmt"
)

var (
	postgresProfileReader func() ProfileReader
	postgresProfileWriter func() ProfileWriter
	postgresInitialized   bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called from cmd to avoid import cycles.
func RegisterPostgresBackend(reader func() ProfileReader, writer func() ProfileWriter) {
	postgresProfileReader = reader
	postgresProfileWriter = writer
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetProfileReader returns a ProfileReader from the PostgreSQL backend
func GetProfileReader(ctx context.Context) (ProfileReader, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresProfileReader == nil {
		return nil, fmt.Errorf("PostgreSQL profile reader not registered")
	}
	return postgresProfileReader(), nil
}

// GetProfileWriter returns a ProfileWriter from the PostgreSQL backend
func GetProfileWriter(ctx context.Context) (ProfileWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresProfileWriter == nil {
		return nil, fmt.Errorf("PostgreSQL profile writer not registered")
	}
	return postgresProfileWriter(), nil
}
