package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mgit/pkg/core"
	"mgit/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRefNotFound      = errors.New("reference not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
	ErrCommitNotFound   = errors.New("commit not found in metadata")
)

// Repository holds every SQL operation of the metadata layer.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.GetConn().WithContext(ctx)
}

func (r *Repository) GetRef(ctx context.Context, name string) (*Ref, error) {
	ref := &Ref{}
	switch err := r.conn(ctx).Take(ref, "name = ?", name).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: %s", ErrRefNotFound, name)
	case err != nil:
		return nil, fmt.Errorf("read ref %s: %w", name, err)
	}
	return ref, nil
}

// UpdateRef moves name to newHash if its version still equals oldVersion.
// oldVersion 0 means the ref must not exist yet.
func (r *Repository) UpdateRef(ctx context.Context, name string, newHash types.Hash, oldVersion int64) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if oldVersion == 0 {
			return createRef(tx, name, newHash)
		}
		return advanceRef(tx, name, newHash, oldVersion)
	})
}

func createRef(tx *gorm.DB, name string, hash types.Hash) error {
	err := tx.Create(&Ref{Name: name, CommitHash: hash, Version: 1}).Error
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: ref %s already exists", ErrConcurrentUpdate, name)
	default:
		return fmt.Errorf("create ref %s: %w", name, err)
	}
}

func advanceRef(tx *gorm.DB, name string, hash types.Hash, oldVersion int64) error {
	res := tx.Model(&Ref{}).
		Where("name = ? AND version = ?", name, oldVersion).
		Updates(map[string]any{
			"commit_hash": hash,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update ref %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: ref %s is no longer at version %d", ErrConcurrentUpdate, name, oldVersion)
	}
	return nil
}

// postgres surfaces gorm.ErrDuplicatedKey; sqlite only reports it in the text.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IndexCommit records c. Indexing the same commit twice is a no-op.
func (r *Repository) IndexCommit(ctx context.Context, c *core.Commit) error {
	row, err := commitRow(c)
	if err != nil {
		return err
	}
	err = r.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "hash"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("index commit %s: %w", c.ID(), err)
	}
	return nil
}

func commitRow(c *core.Commit) (*CommitModel, error) {
	parents := []types.Hash{}
	if !c.IsRoot() {
		parents = append(parents, c.ParentHash())
	}
	raw, err := json.Marshal(parents)
	if err != nil {
		return nil, fmt.Errorf("encode parents of %s: %w", c.ID(), err)
	}
	author := c.Author()
	return &CommitModel{
		Hash:        c.ID(),
		TreeHash:    c.TreeHash(),
		Parents:     datatypes.JSON(raw),
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		Message:     c.Message(),
		Timestamp:   c.Timestamp(),
		TZOffset:    c.TZOffset(),
		CreatedAt:   time.Unix(c.Timestamp(), 0),
	}, nil
}

func (r *Repository) GetCommit(ctx context.Context, hash types.Hash) (*CommitModel, error) {
	row := &CommitModel{}
	switch err := r.conn(ctx).Take(row, "hash = ?", hash).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	case err != nil:
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return row, nil
}

// History follows first parents from start, newest first. limit <= 0 means
// no limit. On a gap it returns what was read along with the error.
func (r *Repository) History(ctx context.Context, start types.Hash, limit int) ([]CommitModel, error) {
	var out []CommitModel
	for next := start; !next.IsZero(); {
		if limit > 0 && len(out) >= limit {
			break
		}
		row, err := r.GetCommit(ctx, next)
		if err != nil {
			return out, err
		}
		out = append(out, *row)

		parents, err := row.ParentHashes()
		if err != nil {
			return out, fmt.Errorf("commit %s: corrupt parents: %w", row.Hash, err)
		}
		next = ""
		if len(parents) > 0 {
			next = parents[0]
		}
	}
	return out, nil
}

// FindCommitsByAuthor returns the newest commits by the named author.
func (r *Repository) FindCommitsByAuthor(ctx context.Context, name string, limit int) ([]CommitModel, error) {
	var rows []CommitModel
	q := r.conn(ctx).Where("author_name = ?", name).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find commits by %s: %w", name, err)
	}
	return rows, nil
}
