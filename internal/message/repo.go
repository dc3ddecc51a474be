package message

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Insert(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// viewRow is the flat scan target for the users join.
type viewRow struct {
	ID          string
	Receiver    string
	Content     string
	CreatedAt   time.Time
	SenderID    uint64
	Username    string
	AvatarColor string
}

func (row viewRow) toView() View {
	return View{
		ID:        row.ID,
		Receiver:  row.Receiver,
		Content:   row.Content,
		CreatedAt: row.CreatedAt,
		Sender: Sender{
			ID:          row.SenderID,
			Username:    row.Username,
			AvatarColor: row.AvatarColor,
		},
	}
}

const viewSelect = "messages.id, messages.receiver, messages.content, messages.created_at, " +
	"users.id AS sender_id, users.username, users.avatar_color"

// GetViewByID re-reads a persisted message joined with the sender profile.
func (r *Repo) GetViewByID(ctx context.Context, id string) (*View, error) {
	var row viewRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select(viewSelect).
		Joins("JOIN users ON users.id = messages.user_id").
		Where("messages.id = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	v := row.toView()
	return &v, nil
}

// ListViewsForUser returns every message owned by the user, ascending by
// creation time. ULID ids break timestamp ties deterministically.
func (r *Repo) ListViewsForUser(ctx context.Context, userID uint64) ([]View, error) {
	var rows []viewRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select(viewSelect).
		Joins("JOIN users ON users.id = messages.user_id").
		Where("messages.user_id = ?", userID).
		Order("messages.created_at ASC, messages.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toView())
	}
	return views, nil
}
