package meta

import (
	"encoding/json"
	"time"

	"mgit/pkg/types"

	"gorm.io/datatypes"
)

// Ref is a named pointer to a commit, e.g. "HEAD".
type Ref struct {
	Name       string     `gorm:"primaryKey;type:varchar(255)"`
	CommitHash types.Hash `gorm:"type:char(40);not null"`

	// Version is bumped on every update and used for compare-and-swap.
	Version int64 `gorm:"default:1"`

	UpdatedAt time.Time
}

// CommitModel is the queryable projection of a stored commit. The object
// store remains the source of truth; this table backs history listing.
type CommitModel struct {
	Hash     types.Hash `gorm:"primaryKey;type:char(40)"`
	TreeHash types.Hash `gorm:"type:char(40);not null"`

	// Parents is a JSON array; a root commit stores [].
	Parents datatypes.JSON

	AuthorName  string `gorm:"index;type:varchar(100)"`
	AuthorEmail string `gorm:"type:varchar(255)"`
	Message     string `gorm:"type:text"`
	Timestamp   int64  `gorm:"index"`
	TZOffset    string `gorm:"type:varchar(5)"`

	CreatedAt time.Time
}

func (CommitModel) TableName() string {
	return "commits"
}

// ParentHashes decodes Parents.
func (c *CommitModel) ParentHashes() ([]types.Hash, error) {
	if len(c.Parents) == 0 {
		return nil, nil
	}
	var parents []types.Hash
	if err := json.Unmarshal(c.Parents, &parents); err != nil {
		return nil, err
	}
	return parents, nil
}

// Time returns the commit time in its recorded zone.
func (c *CommitModel) Time() time.Time {
	t := time.Unix(c.Timestamp, 0)
	if loc, err := time.Parse("-0700", c.TZOffset); err == nil {
		return t.In(loc.Location())
	}
	return t.UTC()
}
