package app

import (
	"context"
	"database/sql"
	"testing"

	"elbp_record_service/internal/domain/comment"
	"elbp_record_service/internal/domain/record"
)

func addComment(t *testing.T, svc *CommentService, recordID, parentID int64, body string) *comment.Comment {
	t.Helper()
	c := &comment.Comment{
		RecordType: record.TypeSession,
		RecordID:   recordID,
		AuthorID:   1,
		Body:       body,
	}
	if parentID != 0 {
		c.ParentID = sql.NullInt64{Int64: parentID, Valid: true}
	}
	if err := svc.Add(context.Background(), c); err != nil {
		t.Fatalf("Add(%q) error: %v", body, err)
	}
	return c
}

func TestAddAssignsNarrowingWidths(t *testing.T) {
	svc := NewCommentService(newFakeCommentRepo(), quietLogger())

	root := addComment(t, svc, 7, 0, "root")
	reply := addComment(t, svc, 7, root.ID, "reply")
	nested := addComment(t, svc, 7, reply.ID, "nested")

	if root.Width != 80 || reply.Width != 78 || nested.Width != 76 {
		t.Errorf("widths = %d, %d, %d, want 80, 78, 76", root.Width, reply.Width, nested.Width)
	}
}

func TestAddRejectsEmptyBody(t *testing.T) {
	svc := NewCommentService(newFakeCommentRepo(), quietLogger())
	err := svc.Add(context.Background(), &comment.Comment{
		RecordType: record.TypeSession, RecordID: 7, AuthorID: 1, Body: "   ",
	})
	if err == nil {
		t.Fatal("expected an error for a blank comment")
	}
}

func TestThreadAssembly(t *testing.T) {
	svc := NewCommentService(newFakeCommentRepo(), quietLogger())

	root := addComment(t, svc, 7, 0, "root")
	addComment(t, svc, 7, root.ID, "reply")
	addComment(t, svc, 9, 0, "other record")

	roots, err := svc.Thread(context.Background(), record.TypeSession, 7)
	if err != nil {
		t.Fatalf("Thread() error: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected 1 root for record 7, got %d", len(roots))
	}
	if len(roots[0].Children) != 1 || roots[0].Children[0].Body != "reply" {
		t.Errorf("thread children = %+v", roots[0].Children)
	}
}

func TestDeleteRemovesSubtree(t *testing.T) {
	repo := newFakeCommentRepo()
	svc := NewCommentService(repo, quietLogger())

	root := addComment(t, svc, 7, 0, "root")
	reply := addComment(t, svc, 7, root.ID, "reply")
	nested := addComment(t, svc, 7, reply.ID, "nested")
	sibling := addComment(t, svc, 7, root.ID, "sibling")

	if err := svc.Delete(context.Background(), reply.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	roots, err := svc.Thread(context.Background(), record.TypeSession, 7)
	if err != nil {
		t.Fatalf("Thread() error: %v", err)
	}
	if comment.Find(roots, reply.ID) != nil || comment.Find(roots, nested.ID) != nil {
		t.Error("deleted subtree still visible in thread")
	}
	if comment.Find(roots, sibling.ID) == nil {
		t.Error("sibling disappeared with the deleted subtree")
	}
}

func TestDeleteRootRemovesWholeThread(t *testing.T) {
	repo := newFakeCommentRepo()
	svc := NewCommentService(repo, quietLogger())

	root := addComment(t, svc, 7, 0, "root")
	left := addComment(t, svc, 7, root.ID, "left")
	right := addComment(t, svc, 7, root.ID, "right")
	addComment(t, svc, 7, left.ID, "left grandchild")
	addComment(t, svc, 7, right.ID, "right grandchild")

	if err := svc.Delete(context.Background(), root.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	roots, err := svc.Thread(context.Background(), record.TypeSession, 7)
	if err != nil {
		t.Fatalf("Thread() error: %v", err)
	}
	if len(roots) != 0 {
		t.Errorf("expected an empty thread after root delete, got %d root(s)", len(roots))
	}
	for id, c := range repo.comments {
		if !c.Deleted {
			t.Errorf("comment %d survived the root delete", id)
		}
	}
}

func TestDeleteMissingCommentIsNoOp(t *testing.T) {
	svc := NewCommentService(newFakeCommentRepo(), quietLogger())
	if err := svc.Delete(context.Background(), 42); err != nil {
		t.Fatalf("expected missing comment delete to be ignored, got %v", err)
	}
}
