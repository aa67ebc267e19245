package mongostore

import (
	"context"
	"errors"
	"time"

	"tragic-bricks/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// wrapError 将 MongoDB 错误转换为领域错误
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicate
	}
	return err
}

// observe 记录一次查询耗时；NotFound/Duplicate 属于正常业务结果，不按失败记录
func (s *Store) observe(ctx context.Context, op, col string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDuplicate) {
		err = nil
	}
	s.log.DBQueryLog(ctx, op, col, time.Since(start), err)
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// byIDs {_id: {$in: ids}}
func byIDs(ids []string) bson.D {
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
}

// findOne 查找单个文档，不存在时返回 (nil, nil)
func findOne[T any](ctx context.Context, s *Store, col string, filter bson.D) (result *T, err error) {
	defer func(start time.Time) { s.observe(ctx, "findOne", col, start, err) }(time.Now())

	var doc T
	if err = s.col(col).FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, wrapError(err)
	}
	return &doc, nil
}

// findMany 查找多个文档，无结果时返回空切片
func findMany[T any](ctx context.Context, s *Store, col string, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	start := time.Now()
	results, err := decodeAll[T](ctx, s.col(col), filter, opts...)
	s.observe(ctx, "find", col, start, err)
	return results, err
}

func decodeAll[T any](ctx context.Context, c *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := []*T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	return results, cursor.Err()
}

// insertOne 唯一索引冲突返回 storage.ErrDuplicate
func (s *Store) insertOne(ctx context.Context, col string, doc interface{}) error {
	start := time.Now()
	_, err := s.col(col).InsertOne(ctx, doc)
	err = wrapError(err)
	s.observe(ctx, "insert", col, start, err)
	return err
}

// deleteByID 文档不存在返回 storage.ErrNotFound
func (s *Store) deleteByID(ctx context.Context, col, id string) error {
	start := time.Now()
	res, err := s.col(col).DeleteOne(ctx, byID(id))
	if err == nil && res.DeletedCount == 0 {
		err = storage.ErrNotFound
	}
	err = wrapError(err)
	s.observe(ctx, "delete", col, start, err)
	return err
}

// setFields 按 _id $set 指定字段，文档不存在返回 storage.ErrNotFound
func (s *Store) setFields(ctx context.Context, col, id string, fields bson.D) error {
	start := time.Now()
	res, err := s.col(col).UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: fields}})
	if err == nil && res.MatchedCount == 0 {
		err = storage.ErrNotFound
	}
	err = wrapError(err)
	s.observe(ctx, "update", col, start, err)
	return err
}
