package chatbot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnlab-assistant/internal/domain/chatbot"
	"github.com/yungbote/learnlab-assistant/internal/platform/dbctx"
	"github.com/yungbote/learnlab-assistant/internal/platform/logger"
)

// MessageRepo is append-only: there is no update or delete path.
type MessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.Message, error)
	ListRecent(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	CountByRoleSince(dbc dbctx.Context, since time.Time) (map[types.MessageRole]int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error) {
	if len(rows) == 0 {
		return []*types.Message{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	var out []*types.Message
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecent returns the newest limit messages in chronological order.
func (r *messageRepo) ListRecent(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.Message
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messageRepo) CountByRoleSince(dbc dbctx.Context, since time.Time) (map[types.MessageRole]int64, error) {
	var rows []struct {
		Role string
		N    int64
	}
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Select("role, COUNT(*) AS n").
		Where("sent_at >= ?", since).
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.MessageRole]int64, len(rows))
	for _, row := range rows {
		out[types.MessageRole(row.Role)] = row.N
	}
	return out, nil
}
