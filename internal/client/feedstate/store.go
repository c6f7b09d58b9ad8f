// Package feedstate is the client-side view model for a feed. It merges the
// authoritative post list with relay pushes and the results of local
// interactions.
package feedstate

import (
	"sync"

	"github.com/zfogg/huddle/internal/dto"
)

// PostView is a post plus the viewer-specific state derived from it
type PostView struct {
	Post       dto.PostResponse
	Liked      bool
	LikesCount int
	// Shared only stops the UI from sharing twice; the server allows it
	Shared bool
}

// Store holds the feed for one viewer
type Store struct {
	mu       sync.RWMutex
	viewerID string
	loaded   bool
	order    []string
	views    map[string]*PostView
	pending  []dto.PostResponse
}

// New creates an empty, unloaded store
func New() *Store {
	return &Store{views: make(map[string]*PostView)}
}

// Load replaces the feed with an authoritative list, then merges any relay
// pushes that arrived before it.
func (s *Store) Load(posts []dto.PostResponse, viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewerID = viewerID
	s.order = s.order[:0]
	s.views = make(map[string]*PostView, len(posts))
	for _, p := range posts {
		if _, dup := s.views[p.ID]; dup {
			continue
		}
		s.views[p.ID] = newView(p, viewerID)
		s.order = append(s.order, p.ID)
	}
	s.loaded = true

	pending := s.pending
	s.pending = nil
	for _, p := range pending {
		s.prependLocked(p)
	}
}

// Loaded reports whether Load has run
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// MergeRelay adds a pushed post to the top of the feed unless it is already
// there. Before Load the post is buffered. Reports whether it was added.
func (s *Store) MergeRelay(post dto.PostResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.pending = append(s.pending, post)
		return false
	}
	return s.prependLocked(post)
}

// ApplyLike replaces liked and the count with what the server returned
func (s *Store) ApplyLike(postID string, result dto.LikeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.views[postID]
	if !ok {
		return
	}
	v.Post.Likes = result.Likes
	v.Post.LikeCount = result.LikeCount
	v.Liked = contains(result.Likes, s.viewerID)
	v.LikesCount = result.LikeCount
}

// MarkShared records that the viewer shared postID
func (s *Store) MarkShared(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[postID]; ok {
		v.Shared = true
	}
}

// CanShare reports whether the UI should offer Share for postID
func (s *Store) CanShare(postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[postID]
	return ok && !v.Shared
}

// Get returns a copy of one post view
func (s *Store) Get(postID string) (PostView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[postID]
	if !ok {
		return PostView{}, false
	}
	return *v, true
}

// Posts returns copies of the views, newest pushed first
func (s *Store) Posts() []PostView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PostView, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.views[id])
	}
	return out
}

// Len returns the number of posts in the feed
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) prependLocked(post dto.PostResponse) bool {
	if _, ok := s.views[post.ID]; ok {
		return false
	}
	s.views[post.ID] = newView(post, s.viewerID)
	s.order = append([]string{post.ID}, s.order...)
	return true
}

func newView(p dto.PostResponse, viewerID string) *PostView {
	return &PostView{
		Post:       p,
		Liked:      contains(p.Likes, viewerID),
		LikesCount: len(p.Likes),
	}
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
