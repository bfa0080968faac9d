// Package catalog_models reads the reference data the workflow
// validates against: users, treatments, countries and hospital
// packages. These tables are owned by other services; only existence
// and pricing lookups live here.
package catalog_models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/utils/apperrors"
)

func exists(ctx context.Context, db *pgxpool.Pool, query string, id uuid.UUID) (bool, error) {
	var found bool
	if err := db.QueryRow(ctx, query, id).Scan(&found); err != nil {
		logger.ErrorLogger.Errorf("Existence check failed for %s: %v", id, err)
		return false, apperrors.Wrap(apperrors.Server, "catalog_query_failed", "failed to check reference data", err)
	}
	return found, nil
}

// UserExists reports whether the user is known.
func UserExists(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) (bool, error) {
	return exists(ctx, db, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID)
}

// TreatmentExists reports whether the treatment is known.
func TreatmentExists(ctx context.Context, db *pgxpool.Pool, treatmentID uuid.UUID) (bool, error) {
	return exists(ctx, db, `SELECT EXISTS (SELECT 1 FROM treatments WHERE id = $1)`, treatmentID)
}

// CountryExists reports whether the country is known.
func CountryExists(ctx context.Context, db *pgxpool.Pool, countryID uuid.UUID) (bool, error) {
	return exists(ctx, db, `SELECT EXISTS (SELECT 1 FROM countries WHERE id = $1)`, countryID)
}

// GetPackagePrice returns the base price of a hospital package.
func GetPackagePrice(ctx context.Context, db *pgxpool.Pool, packageID uuid.UUID) (float64, error) {
	var price float64
	err := db.QueryRow(ctx, `SELECT price FROM packages WHERE id = $1`, packageID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.New(apperrors.NotFound, "package_not_found", "package not found")
		}
		logger.ErrorLogger.Errorf("Failed to fetch package %s price: %v", packageID, err)
		return 0, apperrors.Wrap(apperrors.Server, "catalog_query_failed", "failed to fetch package price", err)
	}
	return price, nil
}
