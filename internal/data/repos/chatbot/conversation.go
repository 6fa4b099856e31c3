package chatbot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

// ConversationRepo persists chatbot sessions. Lookups return (nil, nil) when no
// row matches.
type ConversationRepo interface {
	Create(dbc dbctx.Context, row *types.Conversation) (*types.Conversation, error)
	GetByToken(dbc dbctx.Context, token string) (*types.Conversation, error)
	GetActiveByToken(dbc dbctx.Context, token string) (*types.Conversation, error)
	LatestActiveByUser(dbc dbctx.Context, userID string, since time.Time) (*types.Conversation, error)
	LockByToken(dbc dbctx.Context, token string) (*types.Conversation, error)
	ListActiveByUser(dbc dbctx.Context, userID string, limit int) ([]*types.Conversation, error)
	ListActive(dbc dbctx.Context, limit int) ([]*types.Conversation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeactivateIdleBefore(dbc dbctx.Context, cutoff time.Time, now time.Time) (int64, error)
	CountCreatedSince(dbc dbctx.Context, since time.Time) (int64, error)
	CountActive(dbc dbctx.Context) (int64, error)
	CountByRoleSince(dbc dbctx.Context, since time.Time) (map[types.Role]int64, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, row *types.Conversation) (*types.Conversation, error) {
	if row == nil {
		return nil, fmt.Errorf("missing conversation")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if strings.TrimSpace(row.SessionToken) == "" {
		row.SessionToken = uuid.NewString()
	}
	if len(row.Context) == 0 {
		row.Context = []byte("{}")
	}
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *conversationRepo) GetByToken(dbc dbctx.Context, token string) (*types.Conversation, error) {
	return r.first(dbc, "session_token = ?", strings.TrimSpace(token))
}

func (r *conversationRepo) GetActiveByToken(dbc dbctx.Context, token string) (*types.Conversation, error) {
	return r.first(dbc, "session_token = ? AND is_active = ?", strings.TrimSpace(token), true)
}

func (r *conversationRepo) first(dbc dbctx.Context, query string, args ...interface{}) (*types.Conversation, error) {
	var out types.Conversation
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where(query, args...).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) LatestActiveByUser(dbc dbctx.Context, userID string, since time.Time) (*types.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("user_id = ? AND is_active = ? AND last_interaction > ?", userID, true, since).
		Order("last_interaction DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *conversationRepo) LockByToken(dbc dbctx.Context, token string) (*types.Conversation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("missing session_token")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByToken requires dbc.Tx")
	}
	var out types.Conversation
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_token = ?", token).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) ListActiveByUser(dbc dbctx.Context, userID string, limit int) ([]*types.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	if limit <= 0 {
		limit = 5
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_interaction DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) ListActive(dbc dbctx.Context, limit int) ([]*types.Conversation, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("is_active = ?", true).
		Order("last_interaction DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeactivateIdleBefore flips is_active off for every active session whose last
// interaction is strictly older than cutoff. Rows are never deleted.
func (r *conversationRepo) DeactivateIdleBefore(dbc dbctx.Context, cutoff time.Time, now time.Time) (int64, error) {
	res := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("is_active = ? AND last_interaction < ?", true, cutoff).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *conversationRepo) CountCreatedSince(dbc dbctx.Context, since time.Time) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("created_at >= ?", since).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *conversationRepo) CountActive(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("is_active = ?", true).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *conversationRepo) CountByRoleSince(dbc dbctx.Context, since time.Time) (map[types.Role]int64, error) {
	var rows []struct {
		UserRole string
		N        int64
	}
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Select("user_role, COUNT(*) AS n").
		Where("created_at >= ?", since).
		Group("user_role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.Role]int64, len(rows))
	for _, row := range rows {
		out[types.Role(row.UserRole)] = row.N
	}
	return out, nil
}
