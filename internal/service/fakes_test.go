package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/engagement"

	"github.com/google/uuid"
)

// memStore is an in-memory ports.Store. WithinTx serializes transactions and
// rolls back engagement and assignment writes when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	collections     map[uuid.UUID]domain.WorkflowCollection
	workflows       map[uuid.UUID]domain.Workflow
	schemas         map[uuid.UUID]domain.JSONSchema
	engagements     map[uuid.UUID]domain.WorkflowCollectionEngagement
	details         map[uuid.UUID][]domain.WorkflowCollectionEngagementDetail
	assignments     map[uuid.UUID]domain.WorkflowCollectionAssignment
	subscriptions   map[uuid.UUID]domain.WorkflowCollectionSubscription
	recommendations []domain.WorkflowCollectionRecommendation
}

func newMemStore() *memStore {
	return &memStore{
		collections:   make(map[uuid.UUID]domain.WorkflowCollection),
		workflows:     make(map[uuid.UUID]domain.Workflow),
		schemas:       make(map[uuid.UUID]domain.JSONSchema),
		engagements:   make(map[uuid.UUID]domain.WorkflowCollectionEngagement),
		details:       make(map[uuid.UUID][]domain.WorkflowCollectionEngagementDetail),
		assignments:   make(map[uuid.UUID]domain.WorkflowCollectionAssignment),
		subscriptions: make(map[uuid.UUID]domain.WorkflowCollectionSubscription),
	}
}

func (s *memStore) Collections() ports.CollectionRepository     { return memCollections{s} }
func (s *memStore) Workflows() ports.WorkflowRepository         { return memWorkflows{s} }
func (s *memStore) Engagements() ports.EngagementRepository     { return memEngagements{s} }
func (s *memStore) Assignments() ports.AssignmentRepository     { return memAssignments{s} }
func (s *memStore) Subscriptions() ports.SubscriptionRepository { return memSubscriptions{s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	engagements := make(map[uuid.UUID]domain.WorkflowCollectionEngagement, len(s.engagements))
	for k, v := range s.engagements {
		engagements[k] = v
	}
	details := make(map[uuid.UUID][]domain.WorkflowCollectionEngagementDetail, len(s.details))
	for k, v := range s.details {
		details[k] = append([]domain.WorkflowCollectionEngagementDetail(nil), v...)
	}
	assignments := make(map[uuid.UUID]domain.WorkflowCollectionAssignment, len(s.assignments))
	for k, v := range s.assignments {
		assignments[k] = v
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.engagements, s.details, s.assignments = engagements, details, assignments
		s.mu.Unlock()
		return err
	}
	return nil
}

// addWorkflow stores w directly, bypassing versioning.
func (s *memStore) addWorkflow(w domain.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[w.ID] = w
}

func (s *memStore) addCollection(c domain.WorkflowCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[c.ID] = c
}

func (s *memStore) addSchema(sc domain.JSONSchema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[sc.ID] = sc
}

func (s *memStore) addAssignment(a domain.WorkflowCollectionAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
}

func (s *memStore) detailRows(engagementID uuid.UUID) []domain.WorkflowCollectionEngagementDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WorkflowCollectionEngagementDetail(nil), s.details[engagementID]...)
}

type memCollections struct{ s *memStore }

func (r memCollections) Create(_ context.Context, c *domain.WorkflowCollection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	latest := 0
	for _, existing := range r.s.collections {
		if existing.Code == c.Code && existing.Version > latest {
			latest = existing.Version
		}
	}
	c.Version = latest + 1
	r.s.collections[c.ID] = *c
	return nil
}

func (r memCollections) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Members = append([]domain.WorkflowCollectionMember(nil), c.Members...)
	for i := range c.Members {
		c.Members[i].Workflow = nil
	}
	return &c, nil
}

func (r memCollections) GetStructure(_ context.Context, id uuid.UUID) (*domain.WorkflowCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Members = append([]domain.WorkflowCollectionMember(nil), c.Members...)
	for i := range c.Members {
		w, ok := r.s.workflows[c.Members[i].WorkflowID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		w.Steps = append([]domain.WorkflowStep(nil), w.Steps...)
		for j := range w.Steps {
			w.Steps[j].Inputs = append([]domain.WorkflowStepInput(nil), w.Steps[j].Inputs...)
			for k := range w.Steps[j].Inputs {
				in := &w.Steps[j].Inputs[k]
				if in.ResponseSchemaID != nil {
					if sc, ok := r.s.schemas[*in.ResponseSchemaID]; ok {
						in.ResponseSchema = &sc
					}
				}
			}
		}
		c.Members[i].Workflow = &w
	}
	return &c, nil
}

func (r memCollections) GetLatestByCode(_ context.Context, code string) (*domain.WorkflowCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *domain.WorkflowCollection
	for _, c := range r.s.collections {
		if c.Code == code && (latest == nil || c.Version > latest.Version) {
			c := c
			latest = &c
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (r memCollections) List(_ context.Context, filter ports.CollectionFilter) ([]domain.WorkflowCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.WorkflowCollection
	for _, c := range r.s.collections {
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !c.Active {
			continue
		}
		if filter.Tag != "" && !hasTag(c, filter.Tag) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

func hasTag(c domain.WorkflowCollection, text string) bool {
	for _, t := range c.Tags {
		if t.Text == text {
			return true
		}
	}
	return false
}

func (r memCollections) ListForUser(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.WorkflowCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make(map[uuid.UUID]struct{})
	for _, a := range r.s.assignments {
		if a.UserID == userID && a.IsOpen() {
			ids[a.WorkflowCollectionID] = struct{}{}
		}
	}
	for _, sub := range r.s.subscriptions {
		if sub.UserID == userID && sub.Active {
			ids[sub.WorkflowCollectionID] = struct{}{}
		}
	}
	for _, rec := range r.s.recommendations {
		if rec.UserID == userID && rec.IsActive(now) {
			ids[rec.WorkflowCollectionID] = struct{}{}
		}
	}
	var out []domain.WorkflowCollection
	for id := range ids {
		if c, ok := r.s.collections[id]; ok && c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memCollections) CreateRecommendation(_ context.Context, rec *domain.WorkflowCollectionRecommendation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.recommendations = append(r.s.recommendations, *rec)
	return nil
}

type memWorkflows struct{ s *memStore }

func (r memWorkflows) Create(_ context.Context, w *domain.Workflow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	latest := 0
	for _, existing := range r.s.workflows {
		if existing.Code == w.Code && existing.Version > latest {
			latest = existing.Version
		}
	}
	w.Version = latest + 1
	r.s.workflows[w.ID] = *w
	return nil
}

func (r memWorkflows) GetByID(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workflows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (r memWorkflows) List(_ context.Context) ([]domain.Workflow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Workflow
	for _, w := range r.s.workflows {
		out = append(out, w)
	}
	return out, nil
}

func (r memWorkflows) CountExisting(_ context.Context, ids []uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.s.workflows[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r memWorkflows) CreateSchema(_ context.Context, sc *domain.JSONSchema) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.schemas {
		if existing.Code == sc.Code {
			return domain.ErrConflict
		}
	}
	r.s.schemas[sc.ID] = *sc
	return nil
}

func (r memWorkflows) GetSchema(_ context.Context, id uuid.UUID) (*domain.JSONSchema, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.schemas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sc, nil
}

type memEngagements struct{ s *memStore }

func (r memEngagements) Create(_ context.Context, e *domain.WorkflowCollectionEngagement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.engagements {
		if existing.UserID == e.UserID && existing.WorkflowCollectionID == e.WorkflowCollectionID && !existing.IsFinished() {
			return &domain.DuplicateEngagementError{UserID: e.UserID, CollectionID: e.WorkflowCollectionID, Kind: "engagement"}
		}
	}
	r.s.engagements[e.ID] = *e
	return nil
}

func (r memEngagements) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowCollectionEngagement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.engagements[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.Details = append([]domain.WorkflowCollectionEngagementDetail(nil), r.s.details[id]...)
	return &e, nil
}

func (r memEngagements) Lock(_ context.Context, id uuid.UUID) (*domain.WorkflowCollectionEngagement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.engagements[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r memEngagements) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionEngagement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.WorkflowCollectionEngagement
	for _, e := range r.s.engagements {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEngagements) FindOpen(_ context.Context, userID, collectionID uuid.UUID) (*domain.WorkflowCollectionEngagement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.engagements {
		if e.UserID == userID && e.WorkflowCollectionID == collectionID && !e.IsFinished() {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memEngagements) ListDetails(_ context.Context, engagementID uuid.UUID) ([]domain.WorkflowCollectionEngagementDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.WorkflowCollectionEngagementDetail(nil), r.s.details[engagementID]...), nil
}

func (r memEngagements) UpsertDetail(_ context.Context, d *domain.WorkflowCollectionEngagementDetail) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.details[d.EngagementID]
	for i := range rows {
		if rows[i].WorkflowStepID != d.WorkflowStepID {
			continue
		}
		rows[i].UserResponse = d.UserResponse
		if rows[i].Finished == nil {
			rows[i].Finished = d.Finished
		}
		*d = rows[i]
		return nil
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.s.details[d.EngagementID] = append(rows, *d)
	return nil
}

func (r memEngagements) MarkFinished(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.engagements[id]
	if !ok || e.IsFinished() {
		return domain.ErrEngagementFinished
	}
	e.Finished = &at
	r.s.engagements[id] = e
	return nil
}

type memAssignments struct{ s *memStore }

func (r memAssignments) Create(_ context.Context, a *domain.WorkflowCollectionAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.assignments {
		if existing.UserID == a.UserID && existing.WorkflowCollectionID == a.WorkflowCollectionID && existing.IsOpen() {
			return &domain.DuplicateEngagementError{UserID: a.UserID, CollectionID: a.WorkflowCollectionID, Kind: "assignment"}
		}
	}
	r.s.assignments[a.ID] = *a
	return nil
}

func (r memAssignments) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowCollectionAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r memAssignments) ListByUser(_ context.Context, userID uuid.UUID, statuses ...domain.AssignmentStatus) ([]domain.WorkflowCollectionAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.WorkflowCollectionAssignment
	for _, a := range r.s.assignments {
		if a.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, a.Status) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func containsStatus(statuses []domain.AssignmentStatus, s domain.AssignmentStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (r memAssignments) FindOpen(_ context.Context, userID, collectionID uuid.UUID) (*domain.WorkflowCollectionAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.UserID == userID && a.WorkflowCollectionID == collectionID && a.IsOpen() {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memAssignments) LinkEngagement(_ context.Context, id, engagementID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok || !a.IsOpen() {
		return domain.ErrNotFound
	}
	a.EngagementID = &engagementID
	a.Status = domain.AssignmentInProgress
	r.s.assignments[id] = a
	return nil
}

func (r memAssignments) UpdateStatus(_ context.Context, id uuid.UUID, status domain.AssignmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	r.s.assignments[id] = a
	return nil
}

func (r memAssignments) CloseForEngagement(_ context.Context, engagementID uuid.UUID, status domain.AssignmentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.assignments {
		if a.EngagementID != nil && *a.EngagementID == engagementID && a.IsOpen() {
			a.Status = status
			r.s.assignments[id] = a
			return true, nil
		}
	}
	return false, nil
}

func (r memAssignments) ListFinishedOpen(_ context.Context, finishedBefore time.Time, limit int) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []uuid.UUID
	for _, a := range r.s.assignments {
		if !a.IsOpen() || a.EngagementID == nil {
			continue
		}
		e, ok := r.s.engagements[*a.EngagementID]
		if !ok || e.Finished == nil || !e.Finished.Before(finishedBefore) {
			continue
		}
		out = append(out, e.ID)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memSubscriptions struct{ s *memStore }

func (r memSubscriptions) Upsert(_ context.Context, sub *domain.WorkflowCollectionSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.subscriptions {
		if existing.UserID == sub.UserID && existing.WorkflowCollectionID == sub.WorkflowCollectionID {
			sub.ID = id
			sub.CreatedAt = existing.CreatedAt
			for i := range sub.Schedules {
				sub.Schedules[i].SubscriptionID = id
			}
			break
		}
	}
	r.s.subscriptions[sub.ID] = *sub
	return nil
}

func (r memSubscriptions) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowCollectionSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (r memSubscriptions) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.WorkflowCollectionSubscription
	for _, sub := range r.s.subscriptions {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r memSubscriptions) Deactivate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subscriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Active = false
	r.s.subscriptions[id] = sub
	return nil
}

// recordingBus captures published events.
type recordingBus struct {
	mu       sync.Mutex
	finished []domain.EngagementFinishedEvent
}

func (b *recordingBus) PublishEngagementFinished(_ context.Context, e domain.EngagementFinishedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = append(b.finished, e)
	return nil
}

func (b *recordingBus) SubscribeToEngagementFinished(ctx context.Context) (<-chan domain.EngagementFinishedEvent, error) {
	ch := make(chan domain.EngagementFinishedEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *recordingBus) finishedEvents() []domain.EngagementFinishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.EngagementFinishedEvent(nil), b.finished...)
}

type cachedState struct {
	version int
	state   engagement.State
}

// mapCache is an in-memory ports.StateCache. beforeSet, when set, runs once
// ahead of the next Set.
type mapCache struct {
	mu          sync.Mutex
	states      map[uuid.UUID]cachedState
	invalidated int
	beforeSet   func()
}

func newMapCache() *mapCache {
	return &mapCache{states: make(map[uuid.UUID]cachedState)}
}

func (c *mapCache) Get(_ context.Context, id uuid.UUID, version int) (*engagement.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.states[id]
	if !ok || entry.version != version {
		return nil, nil
	}
	return &entry.state, nil
}

func (c *mapCache) Set(_ context.Context, id uuid.UUID, version int, st engagement.State) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = cachedState{version: version, state: st}
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
	c.invalidated++
	return nil
}

func (c *mapCache) has(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.states[id]
	return ok
}
