package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"userinfobot/internal/apperr"
	"userinfobot/internal/models"
)

// RestorePrefix starts the callback payload of the Restore button
const RestorePrefix = "restore_"

// RestorePayload returns the callback data for the artifact name
func RestorePayload(name string) string {
	return RestorePrefix + name
}

// ResolvePath maps a bare artifact name to a path inside dir
func ResolvePath(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." || !strings.HasSuffix(name, ".json") {
		return "", apperr.ErrBadPath
	}
	return filepath.Join(dir, name), nil
}

// Replacer is the store operation used by restore
type Replacer interface {
	BulkReplace(ctx context.Context, users []models.User) error
}

// Importer is the store operation used by the startup import
type Importer interface {
	ImportUser(ctx context.Context, u models.User) error
}

// Restore replaces the whole table with the artifact dir/name
func Restore(ctx context.Context, store Replacer, dir, name string) (int, error) {
	path, err := ResolvePath(dir, name)
	if err != nil {
		return 0, err
	}
	users, err := ReadFile(path)
	if err != nil {
		return 0, apperr.Wrap(apperr.MalformedInput, err)
	}
	if err := store.BulkReplace(ctx, users); err != nil {
		return 0, apperr.Wrap(apperr.Persistence, fmt.Errorf("failed to restore %s: %w", name, err))
	}
	return len(users), nil
}

// Import upserts every record of the artifact at path, overwriting ban
// fields and bio. Records are applied one by one; the first failure stops.
func Import(ctx context.Context, store Importer, path string) (int, error) {
	users, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	for i, u := range users {
		if err := store.ImportUser(ctx, u); err != nil {
			return i, apperr.Wrap(apperr.Persistence, err)
		}
	}
	return len(users), nil
}
