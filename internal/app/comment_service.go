// internal/app/comment_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"elbp_record_service/internal/domain/comment"
	"elbp_record_service/internal/domain/record"
	idb "elbp_record_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// CommentService manages the discussion thread attached to a record.
type CommentService struct {
	commentRepo comment.Repository
	logger      *logrus.Logger
}

func NewCommentService(commentRepo comment.Repository, logger *logrus.Logger) *CommentService {
	return &CommentService{commentRepo: commentRepo, logger: logger}
}

// Thread loads a record's full comment tree in one query and assembles it in
// memory, oldest siblings first, display widths assigned per depth.
func (s *CommentService) Thread(ctx context.Context, typ record.Type, recordID int64) ([]*comment.Comment, error) {
	flat, err := s.commentRepo.ListByRecord(ctx, typ, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments for %s record %d: %w", typ, recordID, err)
	}
	return comment.BuildTree(flat), nil
}

// Add stores a new comment. A reply's display width narrows with its depth,
// which is resolved by walking the parent chain.
func (s *CommentService) Add(ctx context.Context, c *comment.Comment) error {
	if strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("comment body must not be empty")
	}

	depth := 0
	parentID := c.ParentID
	for parentID.Valid {
		parent, err := s.commentRepo.GetByID(ctx, parentID.Int64)
		if err != nil {
			if err == idb.ErrCommentNotFound {
				// Orphan reply: keep it, but anchor it at the root level.
				s.logger.Warnf("Parent comment %d not found, attaching comment as top-level", parentID.Int64)
				c.ParentID = sql.NullInt64{}
				depth = 0
				break
			}
			return fmt.Errorf("failed to resolve comment depth: %w", err)
		}
		depth++
		parentID = parent.ParentID
	}
	c.Width = comment.WidthForDepth(depth)

	if err := s.commentRepo.Create(ctx, c); err != nil {
		return fmt.Errorf("could not insert comment: %w", err)
	}
	return nil
}

// Delete soft-deletes a comment together with its entire reply subtree, so a
// thread never shows replies dangling from a removed parent.
func (s *CommentService) Delete(ctx context.Context, id int64) error {
	target, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if err == idb.ErrCommentNotFound {
			s.logger.Warnf("Delete of missing comment %d ignored", id)
			return nil
		}
		return fmt.Errorf("failed to load comment %d: %w", id, err)
	}

	flat, err := s.commentRepo.ListByRecord(ctx, target.RecordType, target.RecordID)
	if err != nil {
		return fmt.Errorf("failed to load thread for comment %d: %w", id, err)
	}

	ids := []int64{id}
	if node := comment.Find(comment.BuildTree(flat), id); node != nil {
		ids = comment.DescendantIDs(node)
	}

	if err := s.commentRepo.SoftDeleteMany(ctx, ids); err != nil {
		return fmt.Errorf("could not delete comment subtree: %w", err)
	}
	s.logger.Debugf("Deleted comment %d and %d descendant(s)", id, len(ids)-1)
	return nil
}

// Resolve marks a comment thread entry as resolved or reopens it.
func (s *CommentService) Resolve(ctx context.Context, id int64, resolved bool) error {
	return s.commentRepo.SetResolved(ctx, id, resolved)
}
