// Package testutil holds in-memory stand-ins for the repositories and
// outbound clients, shared by service tests.
package testutil

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	reactionRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
	"github.com/google/uuid"
)

var errNotFound = apperror.ErrNotFound

// Users implements the user repository.
type Users struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*entity.User
}

func NewUsers(users ...*entity.User) *Users {
	u := &Users{byID: make(map[uuid.UUID]*entity.User)}
	for _, user := range users {
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		u.byID[user.ID] = user
	}
	return u
}

func (u *Users) Create(_ context.Context, user *entity.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.byID {
		if existing.Email == user.Email || existing.Username == user.Username {
			return apperror.ErrConflict
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.IsAdmin = len(u.byID) < 5
	user.CreatedAt = time.Now()
	u.byID[user.ID] = user
	return nil
}

func (u *Users) find(match func(*entity.User) bool) (*entity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byID {
		if match(user) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (u *Users) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return u.find(func(x *entity.User) bool { return x.ID == id })
}

func (u *Users) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return u.find(func(x *entity.User) bool { return x.Email == email })
}

func (u *Users) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return u.find(func(x *entity.User) bool { return x.Username == username })
}

func (u *Users) FindByGitHubID(_ context.Context, githubID string) (*entity.User, error) {
	return u.find(func(x *entity.User) bool { return x.GitHubID != nil && *x.GitHubID == githubID })
}

func (u *Users) FindByUsernames(_ context.Context, usernames []string) ([]entity.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := []entity.User{}
	for _, name := range usernames {
		for _, user := range u.byID {
			if user.Username == name {
				out = append(out, *user)
			}
		}
	}
	return out, nil
}

func (u *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := u.FindByEmail(ctx, email)
	return err == nil, nil
}

func (u *Users) ExistsByUsername(_ context.Context, username string, except *uuid.UUID) (bool, error) {
	_, err := u.find(func(x *entity.User) bool {
		return x.Username == username && (except == nil || x.ID != *except)
	})
	return err == nil, nil
}

func (u *Users) Update(_ context.Context, user *entity.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byID[user.ID]; !ok {
		return errNotFound
	}
	cp := *user
	u.byID[user.ID] = &cp
	return nil
}

func (u *Users) LinkGitHub(_ context.Context, id uuid.UUID, githubID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return errNotFound
	}
	user.GitHubID = &githubID
	return nil
}

func (u *Users) SetCreator(_ context.Context, id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byID[id]
	if !ok {
		return errNotFound
	}
	user.IsCreator = true
	return nil
}

func (u *Users) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.byID)
}

// Watches implements the watch repository.
type Watches struct {
	mu    sync.Mutex
	edges map[[2]uuid.UUID]bool
}

func NewWatches() *Watches {
	return &Watches{edges: make(map[[2]uuid.UUID]bool)}
}

func (w *Watches) Create(_ context.Context, watcherID, watchedID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := [2]uuid.UUID{watcherID, watchedID}
	if w.edges[key] {
		return apperror.ErrAlreadyWatching
	}
	w.edges[key] = true
	return nil
}

func (w *Watches) Delete(_ context.Context, watcherID, watchedID uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := [2]uuid.UUID{watcherID, watchedID}
	if !w.edges[key] {
		return apperror.ErrNotWatching
	}
	delete(w.edges, key)
	return nil
}

func (w *Watches) Exists(_ context.Context, watcherID, watchedID uuid.UUID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.edges[[2]uuid.UUID{watcherID, watchedID}], nil
}

func (w *Watches) CountWatchers(ctx context.Context, watchedID uuid.UUID) (int64, error) {
	ids, _ := w.ListWatcherIDs(ctx, watchedID)
	return int64(len(ids)), nil
}

func (w *Watches) ListWatcherIDs(_ context.Context, watchedID uuid.UUID) ([]uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var ids []uuid.UUID
	for key := range w.edges {
		if key[1] == watchedID {
			ids = append(ids, key[0])
		}
	}
	return ids, nil
}

// Videos implements the video repository.
type Videos struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*entity.Video
	users  *Users
	FailOn string // name of the method that should fail
}

func NewVideos(users *Users, videos ...*entity.Video) *Videos {
	v := &Videos{byID: make(map[uuid.UUID]*entity.Video), users: users}
	for _, video := range videos {
		if video.ID == uuid.Nil {
			video.ID = uuid.New()
		}
		v.byID[video.ID] = video
	}
	return v
}

var ErrInjected = apperror.New(500, "injected failure", nil)

func (v *Videos) withUser(video entity.Video) entity.Video {
	if v.users != nil {
		if u, err := v.users.FindByID(context.Background(), video.UserID); err == nil {
			video.User = *u
		}
	}
	return video
}

func (v *Videos) Create(_ context.Context, video *entity.Video) error {
	if v.FailOn == "Create" {
		return ErrInjected
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	if video.Visibility == "" {
		video.Visibility = entity.VisibilityPublic
	}
	video.CreatedAt = time.Now()
	cp := *video
	v.byID[video.ID] = &cp
	return nil
}

func (v *Videos) FindByID(_ context.Context, id uuid.UUID) (*entity.Video, error) {
	v.mu.Lock()
	video, ok := v.byID[id]
	v.mu.Unlock()
	if !ok {
		return nil, errNotFound
	}
	out := v.withUser(*video)
	return &out, nil
}

func (v *Videos) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Video, error) {
	out := []entity.Video{}
	for _, id := range ids {
		if video, err := v.FindByID(ctx, id); err == nil {
			out = append(out, *video)
		}
	}
	return out, nil
}

func (v *Videos) sorted(match func(*entity.Video) bool) []entity.Video {
	v.mu.Lock()
	list := make([]entity.Video, 0, len(v.byID))
	for _, video := range v.byID {
		if match(video) {
			list = append(list, *video)
		}
	}
	v.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	for i := range list {
		list[i] = v.withUser(list[i])
	}
	return list
}

func (v *Videos) ListPublic(_ context.Context, offset, limit int) ([]entity.Video, int64, error) {
	list := v.sorted(func(x *entity.Video) bool { return x.Visibility == entity.VisibilityPublic })
	total := int64(len(list))
	if offset > len(list) {
		offset = len(list)
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (v *Videos) ListByUser(_ context.Context, userID uuid.UUID, includeHidden bool) ([]entity.Video, error) {
	return v.sorted(func(x *entity.Video) bool {
		return x.UserID == userID && (includeHidden || x.Visibility == entity.VisibilityPublic)
	}), nil
}

func (v *Videos) SearchText(_ context.Context, query string, limit int) ([]entity.Video, error) {
	q := strings.ToLower(query)
	list := v.sorted(func(x *entity.Video) bool {
		return x.Visibility == entity.VisibilityPublic &&
			(strings.Contains(strings.ToLower(x.Title), q) || strings.Contains(strings.ToLower(x.Description), q))
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (v *Videos) SuggestTitles(ctx context.Context, query string, limit int) ([]string, error) {
	list, _ := v.SearchText(ctx, query, limit)
	titles := make([]string, len(list))
	for i, video := range list {
		titles[i] = video.Title
	}
	return titles, nil
}

func (v *Videos) IncrementViews(_ context.Context, id uuid.UUID) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	video, ok := v.byID[id]
	if !ok {
		return 0, errNotFound
	}
	video.Views++
	return video.Views, nil
}

func (v *Videos) Update(_ context.Context, video *entity.Video) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.byID[video.ID]; !ok {
		return errNotFound
	}
	cp := *video
	v.byID[video.ID] = &cp
	return nil
}

func (v *Videos) Delete(_ context.Context, id uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.byID[id]; !ok {
		return errNotFound
	}
	delete(v.byID, id)
	return nil
}

func (v *Videos) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byID)
}

// Comments implements the comment repository.
type Comments struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*entity.Comment
	users *Users
}

func NewComments(users *Users, comments ...*entity.Comment) *Comments {
	c := &Comments{byID: make(map[uuid.UUID]*entity.Comment), users: users}
	for _, comment := range comments {
		if comment.ID == uuid.Nil {
			comment.ID = uuid.New()
		}
		c.byID[comment.ID] = comment
	}
	return c
}

func (c *Comments) Create(_ context.Context, comment *entity.Comment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = time.Now()
	cp := *comment
	c.byID[comment.ID] = &cp
	return nil
}

func (c *Comments) FindByID(_ context.Context, id uuid.UUID) (*entity.Comment, error) {
	c.mu.Lock()
	comment, ok := c.byID[id]
	c.mu.Unlock()
	if !ok {
		return nil, errNotFound
	}
	out := *comment
	if c.users != nil {
		if u, err := c.users.FindByID(context.Background(), out.UserID); err == nil {
			out.User = *u
		}
	}
	return &out, nil
}

func (c *Comments) ListByVideo(_ context.Context, videoID uuid.UUID) ([]entity.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []entity.Comment{}
	for _, comment := range c.byID {
		if comment.VideoID == videoID {
			out = append(out, *comment)
		}
	}
	return out, nil
}

func (c *Comments) UpdateText(_ context.Context, id uuid.UUID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	comment, ok := c.byID[id]
	if !ok {
		return errNotFound
	}
	comment.Text = text
	return nil
}

func (c *Comments) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id]; !ok {
		return errNotFound
	}
	delete(c.byID, id)
	return nil
}

// Notifications implements the notification repository.
type Notifications struct {
	mu   sync.Mutex
	rows []*entity.Notification
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (n *Notifications) Create(_ context.Context, notification *entity.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	notification.CreatedAt = time.Now()
	n.rows = append(n.rows, notification)
	return nil
}

func (n *Notifications) FindByID(_ context.Context, id, userID uuid.UUID) (*entity.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, row := range n.rows {
		if row.ID == id && row.UserID == userID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (n *Notifications) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []entity.Notification{}
	for i := len(n.rows) - 1; i >= 0; i-- {
		if n.rows[i].UserID == userID {
			out = append(out, *n.rows[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (n *Notifications) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, row := range n.rows {
		if row.ID == id && row.UserID == userID {
			row.IsRead = true
			return nil
		}
	}
	return errNotFound
}

func (n *Notifications) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var updated int64
	for _, row := range n.rows {
		if row.UserID == userID && !row.IsRead {
			row.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (n *Notifications) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var count int64
	for _, row := range n.rows {
		if row.UserID == userID && !row.IsRead {
			count++
		}
	}
	return count, nil
}

// All returns a snapshot of every stored notification.
func (n *Notifications) All() []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]entity.Notification, len(n.rows))
	for i, row := range n.rows {
		out[i] = *row
	}
	return out
}

// Published is one call to Publisher.Publish.
type Published struct {
	Room string
	Msg  realtime.Message
}

// Recorder is a realtime.Publisher that remembers what it was given.
type Recorder struct {
	mu   sync.Mutex
	msgs []Published
}

func (r *Recorder) Publish(room string, msg realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Published{Room: room, Msg: msg})
}

func (r *Recorder) Messages() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.msgs...)
}

// Media implements storage.MediaStorage without a network.
type Media struct {
	mu        sync.Mutex
	Assets    map[string]storage.AssetKind
	FailWith  error
	DeleteErr error
	Deleted   []string
}

func NewMedia() *Media {
	return &Media{Assets: make(map[string]storage.AssetKind)}
}

func (m *Media) UploadVideo(_ context.Context, r io.Reader, folder, fileName string) (*storage.VideoAsset, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	n, _ := io.Copy(io.Discard, r)
	publicID := folder + "/" + strings.TrimSuffix(fileName, ".mp4")

	m.mu.Lock()
	m.Assets[publicID] = storage.AssetVideo
	m.mu.Unlock()

	url := "https://media.test/video/upload/" + publicID + ".mp4"
	return &storage.VideoAsset{
		URL:          url,
		ThumbnailURL: storage.ThumbnailURL(url),
		PublicID:     publicID,
		Duration:     12.5,
		Width:        1280,
		Height:       720,
		Format:       "mp4",
		Bytes:        n,
	}, nil
}

func (m *Media) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if m.FailWith != nil {
		return "", m.FailWith
	}
	_, _ = io.Copy(io.Discard, r)
	publicID := folder + "/" + fileName
	m.mu.Lock()
	m.Assets[publicID] = storage.AssetImage
	m.mu.Unlock()
	return "https://media.test/image/upload/" + publicID + ".webp", nil
}

func (m *Media) DeleteAsset(_ context.Context, publicID string, _ storage.AssetKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, publicID)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Assets, publicID)
	return nil
}

func (m *Media) DeleteByURL(ctx context.Context, fileURL string) error {
	publicID, kind := storage.ParseDeliveryURL(fileURL)
	if publicID == "" {
		return nil
	}
	return m.DeleteAsset(ctx, publicID, kind)
}

// Reactions implements the reaction repository with the same branch rules.
type Reactions struct {
	mu     sync.Mutex
	rows   map[[2]uuid.UUID]entity.ReactionType
	videos *Videos
}

func NewReactions(videos *Videos) *Reactions {
	return &Reactions{rows: make(map[[2]uuid.UUID]entity.ReactionType), videos: videos}
}

func (r *Reactions) Toggle(ctx context.Context, userID, videoID uuid.UUID, requested entity.ReactionType) (*reactionRepo.ToggleResult, error) {
	if r.videos != nil {
		if _, err := r.videos.FindByID(ctx, videoID); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	key := [2]uuid.UUID{userID, videoID}
	var existing *entity.ReactionType
	if t, ok := r.rows[key]; ok {
		existing = &t
	}

	result := &reactionRepo.ToggleResult{}
	switch reactionRepo.Decide(existing, requested) {
	case reactionRepo.ActionDelete:
		delete(r.rows, key)
	default:
		r.rows[key] = requested
		t := requested
		result.UserReaction = &t
	}
	r.mu.Unlock()

	counts, err := r.Counts(ctx, videoID)
	result.Counts = counts
	return result, err
}

func (r *Reactions) Counts(_ context.Context, videoID uuid.UUID) (reactionRepo.Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c reactionRepo.Counts
	for key, t := range r.rows {
		if key[1] != videoID {
			continue
		}
		switch t {
		case entity.ReactionLike:
			c.Likes++
		case entity.ReactionDislike:
			c.Dislikes++
		}
	}
	return c, nil
}

func (r *Reactions) UserReaction(_ context.Context, userID, videoID uuid.UUID) (*entity.ReactionType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[[2]uuid.UUID{userID, videoID}]; ok {
		return &t, nil
	}
	return nil, nil
}

// Orphans implements storage.OrphanRegistry in memory.
type Orphans struct {
	mu  sync.Mutex
	Set []storage.Orphan
}

func (o *Orphans) Add(_ context.Context, orphan storage.Orphan) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Set = append(o.Set, orphan)
	return nil
}

func (o *Orphans) Pop(_ context.Context, max int) ([]storage.Orphan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if max > len(o.Set) {
		max = len(o.Set)
	}
	out := append([]storage.Orphan(nil), o.Set[:max]...)
	o.Set = o.Set[max:]
	return out, nil
}

func (o *Orphans) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Set)
}

// Index implements the search index in memory. When Err is set every
// query fails, as when the search host is down.
type Index struct {
	mu      sync.Mutex
	Docs    map[uuid.UUID]entity.Video
	Err     error
	Queries int
}

func NewIndex() *Index {
	return &Index{Docs: make(map[uuid.UUID]entity.Video)}
}

func (i *Index) IndexVideo(_ context.Context, video *entity.Video) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if video.Visibility != entity.VisibilityPublic {
		delete(i.Docs, video.ID)
		return nil
	}
	i.Docs[video.ID] = *video
	return nil
}

func (i *Index) DeleteVideo(_ context.Context, id uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.Docs, id)
	return nil
}

func (i *Index) Search(_ context.Context, query string, limit int) ([]uuid.UUID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Queries++
	if i.Err != nil {
		return nil, i.Err
	}
	q := strings.ToLower(query)
	var ids []uuid.UUID
	for id, doc := range i.Docs {
		if strings.Contains(strings.ToLower(doc.Title), q) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (i *Index) Has(id uuid.UUID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.Docs[id]
	return ok
}

// Sync runs fn immediately; services use it in place of a goroutine.
func Sync(fn func()) { fn() }
