package comment

import (
	"database/sql"
	"sort"
	"time"

	"elbp_record_service/internal/domain/record"
)

// Display width shrinks by a fixed step per nesting level, floored.
const (
	WidthStart = 80
	WidthStep  = 2
	WidthFloor = 50
)

// Comment is one node of a record's threaded comment tree. ParentID is NULL
// for roots; a child always references an earlier-inserted row, so the
// structure is acyclic by construction.
type Comment struct {
	ID         int64
	RecordType record.Type
	RecordID   int64
	AuthorID   int64
	ParentID   sql.NullInt64
	Body       string
	Deleted    bool
	Resolved   bool
	Positive   bool
	Hidden     bool
	CreatedAt  time.Time

	// Display metadata, computed at load time, never persisted.
	Width    int
	Children []*Comment
}

// WidthForDepth returns the display width at a nesting depth (0 = root).
func WidthForDepth(depth int) int {
	w := WidthStart - WidthStep*depth
	if w < WidthFloor {
		return WidthFloor
	}
	return w
}

// BuildTree assembles the thread from a flat comment list loaded in one
// query. Roots are ordered by time ascending, as are each node's children.
// Width is assigned per depth. The input slice is not mutated structurally
// beyond Children/Width assignment.
func BuildTree(all []*Comment) []*Comment {
	byParent := make(map[int64][]*Comment)
	var roots []*Comment
	for _, c := range all {
		c.Children = nil
		if c.ParentID.Valid {
			byParent[c.ParentID.Int64] = append(byParent[c.ParentID.Int64], c)
		} else {
			roots = append(roots, c)
		}
	}

	sortByTime(roots)
	var attach func(node *Comment, depth int)
	attach = func(node *Comment, depth int) {
		node.Width = WidthForDepth(depth)
		children := byParent[node.ID]
		sortByTime(children)
		node.Children = children
		for _, child := range children {
			attach(child, depth+1)
		}
	}
	for _, root := range roots {
		attach(root, 0)
	}
	return roots
}

// Find locates a comment anywhere in the loaded tree, depth first.
func Find(roots []*Comment, id int64) *Comment {
	for _, c := range roots {
		if c.ID == id {
			return c
		}
		if found := Find(c.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// DescendantIDs returns the comment's own ID plus every descendant's,
// depth first. Used for cascading soft delete.
func DescendantIDs(c *Comment) []int64 {
	ids := []int64{c.ID}
	for _, child := range c.Children {
		ids = append(ids, DescendantIDs(child)...)
	}
	return ids
}

func sortByTime(comments []*Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
