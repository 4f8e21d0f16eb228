package client

import (
	"context"
	"sync"
	"time"
)

// Manager keeps the activity for one scope live and caches the bundles of
// scopes visited earlier. Mutations adjust the live state optimistically,
// drop the cached bundles for every key the mutation could affect, and then
// force a background refresh; a duplicate create briefly over-counts on
// purpose and the refresh corrects it. Construct one per viewer with
// NewManager.
type Manager struct {
	api      API
	viewerID string

	mu      sync.Mutex
	current *scopeState
	cache   map[string]*scopeState
	albumID string
	assetID string

	errs chan error
}

type scopeState struct {
	activities []Activity
	comments   int
	likes      int
	reactions  int
}

func NewManager(api API, viewerID string) *Manager {
	return &Manager{
		api:      api,
		viewerID: viewerID,
		current:  &scopeState{},
		cache:    map[string]*scopeState{},
		errs:     make(chan error, 16),
	}
}

// Errors reports background refresh failures. The channel is buffered and
// never blocks the manager; unread errors are dropped.
func (m *Manager) Errors() <-chan error {
	return m.errs
}

func cacheKey(albumID, assetID string) string {
	if albumID == "" {
		albumID = "none"
	}
	return albumID + ":" + assetID
}

// Open switches the manager to a scope, restoring a cached bundle when
// present and fetching otherwise.
func (m *Manager) Open(ctx context.Context, albumID, assetID string) error {
	m.mu.Lock()
	m.albumID = albumID
	m.assetID = assetID
	if st, ok := m.cache[cacheKey(albumID, assetID)]; ok {
		m.current = st
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	return m.Refresh(ctx)
}

// Refresh re-reads the current scope from the server, replacing both the
// live state and the cached bundle.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	albumID, assetID := m.albumID, m.assetID
	m.mu.Unlock()

	activities, err := m.api.ListActivities(ctx, albumID, assetID)
	if err != nil {
		return err
	}
	stats, err := m.api.Statistics(ctx, albumID, assetID)
	if err != nil {
		return err
	}

	st := &scopeState{
		activities: activities,
		comments:   stats.Comments,
		likes:      stats.Likes,
		reactions:  stats.Reactions,
	}

	m.mu.Lock()
	m.cache[cacheKey(albumID, assetID)] = st
	if albumID == m.albumID && assetID == m.assetID {
		m.current = st
	}
	m.mu.Unlock()
	return nil
}

// refreshInBackground reconciles optimistic state without blocking the
// caller. It deliberately detaches from the caller's context.
func (m *Manager) refreshInBackground() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Refresh(ctx); err != nil {
			select {
			case m.errs <- err:
			default:
			}
		}
	}()
}

// invalidate drops the cached bundles a mutation in the current scope may
// have gone stale: the album-only key, the album+asset key, and the
// asset-only key. The current scope's own key is among them; the next Open
// or Refresh of this scope goes back to the server. Caller holds the lock.
func (m *Manager) invalidate() {
	if m.albumID != "" {
		delete(m.cache, cacheKey(m.albumID, ""))
		delete(m.cache, cacheKey(m.albumID, m.assetID))
	}
	delete(m.cache, cacheKey("", m.assetID))
}

// Activities returns a snapshot of the current scope, oldest first.
func (m *Manager) Activities() []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Activity, len(m.current.activities))
	copy(out, m.current.activities)
	return out
}

// Counts returns the live comment, like, and reaction counts.
func (m *Manager) Counts() (comments, likes, reactions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.comments, m.current.likes, m.current.reactions
}

func (m *Manager) create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	result, err := m.api.CreateActivity(ctx, req)
	if err != nil {
		return CreateResult{}, err
	}

	m.mu.Lock()
	if !result.Duplicate {
		m.current.activities = append(m.current.activities, result.Activity)
	}
	// Counted before the refresh confirms; a duplicate over-counts briefly.
	switch result.Activity.Type {
	case "comment":
		if result.Activity.ParentID == nil {
			m.current.comments++
		}
	case "like":
		m.current.likes++
	case "reaction":
		m.current.reactions++
	}
	m.invalidate()
	m.mu.Unlock()

	m.refreshInBackground()
	return result, nil
}

// AddComment posts a comment in the current scope.
func (m *Manager) AddComment(ctx context.Context, text string) (Activity, error) {
	result, err := m.create(ctx, CreateRequest{
		AlbumID: m.albumID,
		AssetID: m.assetID,
		Type:    "comment",
		Comment: text,
	})
	if err != nil {
		return Activity{}, err
	}
	return result.Activity, nil
}

// ReplyTo posts a threaded reply under a comment.
func (m *Manager) ReplyTo(ctx context.Context, parentID, text string) (Activity, error) {
	result, err := m.create(ctx, CreateRequest{
		AlbumID:  m.albumID,
		AssetID:  m.assetID,
		ParentID: parentID,
		Type:     "comment",
		Comment:  text,
	})
	if err != nil {
		return Activity{}, err
	}
	return result.Activity, nil
}

// ToggleLike likes the current scope, or removes the viewer's existing like.
func (m *Manager) ToggleLike(ctx context.Context) error {
	m.mu.Lock()
	existing := m.viewerLikeLocked()
	m.mu.Unlock()

	if existing != nil {
		return m.Delete(ctx, existing.ID)
	}
	_, err := m.create(ctx, CreateRequest{
		AlbumID: m.albumID,
		AssetID: m.assetID,
		Type:    "like",
	})
	return err
}

// SetReaction replaces the viewer's top-level reaction with token. The
// delete and create are separate calls; a refresh covers the gap if either
// half fails.
func (m *Manager) SetReaction(ctx context.Context, token string) error {
	m.mu.Lock()
	existing := m.viewerReactionLocked()
	m.mu.Unlock()

	if existing != nil {
		if err := m.Delete(ctx, existing.ID); err != nil {
			return err
		}
	}
	_, err := m.create(ctx, CreateRequest{
		AlbumID:  m.albumID,
		AssetID:  m.assetID,
		Type:     "reaction",
		Reaction: token,
	})
	return err
}

// ReactToComment adds an emoji reaction threaded under a comment.
func (m *Manager) ReactToComment(ctx context.Context, commentID, token string) error {
	_, err := m.create(ctx, CreateRequest{
		AlbumID:  m.albumID,
		AssetID:  m.assetID,
		ParentID: commentID,
		Type:     "reaction",
		Reaction: token,
	})
	return err
}

// UpdateComment edits a comment's text, swaps the updated row into the live
// state, and drops the stale cached bundles.
func (m *Manager) UpdateComment(ctx context.Context, activityID, text string) (Activity, error) {
	updated, err := m.api.UpdateActivity(ctx, activityID, text)
	if err != nil {
		return Activity{}, err
	}

	m.mu.Lock()
	for i := range m.current.activities {
		if m.current.activities[i].ID == activityID {
			m.current.activities[i] = updated
			break
		}
	}
	m.invalidate()
	m.mu.Unlock()
	return updated, nil
}

// Delete removes an activity optimistically: the row, anything threaded
// under it, and the counters go first, then the server call. A failed call
// leaves the live state ahead of the server until the next refresh.
func (m *Manager) Delete(ctx context.Context, activityID string) error {
	m.mu.Lock()
	kept := m.current.activities[:0]
	for _, item := range m.current.activities {
		if item.ID == activityID || (item.ParentID != nil && *item.ParentID == activityID) {
			switch item.Type {
			case "comment":
				if item.ParentID == nil {
					m.current.comments--
				}
			case "like":
				m.current.likes--
			case "reaction":
				m.current.reactions--
			}
			continue
		}
		kept = append(kept, item)
	}
	m.current.activities = kept
	m.mu.Unlock()

	if err := m.api.DeleteActivity(ctx, activityID); err != nil {
		return err
	}

	m.mu.Lock()
	m.invalidate()
	m.mu.Unlock()

	m.refreshInBackground()
	return nil
}

// Reset drops all live and cached state.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albumID = ""
	m.assetID = ""
	m.current = &scopeState{}
	m.cache = map[string]*scopeState{}
}

func (m *Manager) viewerLikeLocked() *Activity {
	for i := range m.current.activities {
		item := m.current.activities[i]
		if item.Type == "like" && item.UserID == m.viewerID && item.ParentID == nil {
			return &item
		}
	}
	return nil
}

func (m *Manager) viewerReactionLocked() *Activity {
	for i := range m.current.activities {
		item := m.current.activities[i]
		if item.Type == "reaction" && item.UserID == m.viewerID && item.ParentID == nil {
			return &item
		}
	}
	return nil
}

// ViewerLiked reports whether the viewer has a top-level like in scope.
func (m *Manager) ViewerLiked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewerLikeLocked() != nil
}

// ViewerReaction returns the viewer's top-level reaction token, if any.
func (m *Manager) ViewerReaction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.viewerReactionLocked(); r != nil && r.Reaction != nil {
		return *r.Reaction
	}
	return ""
}

// ReactionGroup is one emoji token with everyone who used it.
type ReactionGroup struct {
	Token string
	Count int
	Users []string
}

// ReactionSummary groups top-level reactions by token, ordered by count
// descending with first-seen order breaking ties.
func (m *Manager) ReactionSummary() []ReactionGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return groupReactions(m.current.activities, func(item Activity) bool {
		return item.ParentID == nil
	})
}

// CommentReactions groups the reactions threaded under one comment.
func (m *Manager) CommentReactions(commentID string) []ReactionGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return groupReactions(m.current.activities, func(item Activity) bool {
		return item.ParentID != nil && *item.ParentID == commentID
	})
}

func groupReactions(activities []Activity, match func(Activity) bool) []ReactionGroup {
	var order []string
	groups := map[string]*ReactionGroup{}
	for _, item := range activities {
		if item.Type != "reaction" || item.Reaction == nil || !match(item) {
			continue
		}
		token := *item.Reaction
		group, ok := groups[token]
		if !ok {
			group = &ReactionGroup{Token: token}
			groups[token] = group
			order = append(order, token)
		}
		group.Count++
		group.Users = append(group.Users, item.UserName)
	}

	out := make([]ReactionGroup, 0, len(order))
	for _, token := range order {
		out = append(out, *groups[token])
	}
	// Stable: equal counts keep first-seen order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Count > out[j-1].Count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// TopLevelComments returns comments that start a thread: parent absent, or
// pointing at something that is not a comment in scope (an orphan keeps its
// place at the top level).
func (m *Manager) TopLevelComments() []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()

	commentIDs := map[string]bool{}
	for _, item := range m.current.activities {
		if item.Type == "comment" {
			commentIDs[item.ID] = true
		}
	}

	out := make([]Activity, 0)
	for _, item := range m.current.activities {
		if item.Type != "comment" {
			continue
		}
		if item.ParentID == nil || !commentIDs[*item.ParentID] {
			out = append(out, item)
		}
	}
	return out
}

// Replies returns the comments threaded under parentID, oldest first.
func (m *Manager) Replies(parentID string) []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Activity, 0)
	for _, item := range m.current.activities {
		if item.Type == "comment" && item.ParentID != nil && *item.ParentID == parentID {
			out = append(out, item)
		}
	}
	return out
}
