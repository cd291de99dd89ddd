package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetPage(ctx context.Context, convID uint64, page, pageSize int) ([]*Message, int64, error)
	MarkReadByUser(ctx context.Context, convID uint64, userID uint64, ids []primitive.ObjectID) error
	MarkAllReadByUser(ctx context.Context, convID uint64, userID uint64) error
	CountUnread(ctx context.Context, convID uint64, userID uint64) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("message"),
	}
}

// SaveMessage 将消息存入 MongoDB
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []ReadReceipt{}
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetPage 分页查询，最新的在前，同时返回总条数
func (s *messageRepoImpl) GetPage(ctx context.Context, convID uint64, page, pageSize int) ([]*Message, int64, error) {
	filter := bson.M{"conversation_id": convID}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkReadByUser 给指定消息追加该用户的已读回执。
// 过滤条件保证同一用户不会产生重复回执，也不会给自己发的消息补回执。
func (s *messageRepoImpl) MarkReadByUser(ctx context.Context, convID uint64, userID uint64, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	filter := bson.M{
		"_id":             bson.M{"$in": ids},
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": userID},
		"read_by.user_id": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$push": bson.M{"read_by": ReadReceipt{UserID: userID, ReadAt: now}},
		"$set":  bson.M{"is_read": true, "read_at": now},
	}
	_, err := s.col.UpdateMany(ctx, filter, update)
	return err
}

// MarkAllReadByUser 会话内全部补回执，对应显式标记已读
func (s *messageRepoImpl) MarkAllReadByUser(ctx context.Context, convID uint64, userID uint64) error {
	now := time.Now()
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": userID},
		"read_by.user_id": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$push": bson.M{"read_by": ReadReceipt{UserID: userID, ReadAt: now}},
		"$set":  bson.M{"is_read": true, "read_at": now},
	}
	_, err := s.col.UpdateMany(ctx, filter, update)
	return err
}

// CountUnread 权威未读数：他人发送且没有本人回执的消息条数
func (s *messageRepoImpl) CountUnread(ctx context.Context, convID uint64, userID uint64) (int64, error) {
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": userID},
		"read_by.user_id": bson.M{"$ne": userID},
	}
	return s.col.CountDocuments(ctx, filter)
}
