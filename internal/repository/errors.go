package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"

	"recipeshare/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgInvalidText         = "22P02"
)

// translate traduce errores del driver a la taxonomia del dominio.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case pgErr.Code == pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		case pgErr.Code == pgCheckViolation, pgErr.Code == pgNotNullViolation, pgErr.Code == pgInvalidText:
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgErr.Message)
		case isUnavailableClass(pgErr.Code):
			return domain.Unavailable(op, err)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if isTransient(err) {
		return domain.Unavailable(op, err)
	}
	// Encode/scan de pgx y demas fallos locales no se reintentan.
	return fmt.Errorf("%s: %w", op, err)
}

// isTransient reconoce fallos de red, conexion, pool o timeout.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, puddle.ErrClosedPool) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isUnavailableClass cubre connection exceptions (08), recursos (53) y operator intervention (57).
func isUnavailableClass(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "53", "57":
		return true
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
