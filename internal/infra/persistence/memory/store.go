// Package memory provides the canonical in-memory implementation of the
// domain persistence contracts. It backs tests and ephemeral environments
// directly and is embedded by the durable sqlite and postgres drivers.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"biodivcore/pkg/domain"
)

// Compile-time contract assertion for the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Survey aliases domain.Survey for in-memory persistence operations.
	Survey = domain.Survey
	// Plot aliases domain.Plot.
	Plot = domain.Plot
	// Taxon aliases domain.Taxon.
	Taxon = domain.Taxon
	// Observation aliases domain.Observation.
	Observation = domain.Observation
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	surveys      map[string]Survey
	plots        map[string]Plot
	taxa         map[string]Taxon
	observations map[string]Observation
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Surveys      map[string]Survey      `json:"surveys"`
	Plots        map[string]Plot        `json:"plots"`
	Taxa         map[string]Taxon       `json:"taxa"`
	Observations map[string]Observation `json:"observations"`
}

func newMemoryState() memoryState {
	return memoryState{
		surveys:      make(map[string]Survey),
		plots:        make(map[string]Plot),
		taxa:         make(map[string]Taxon),
		observations: make(map[string]Observation),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Surveys:      make(map[string]Survey, len(state.surveys)),
		Plots:        make(map[string]Plot, len(state.plots)),
		Taxa:         make(map[string]Taxon, len(state.taxa)),
		Observations: make(map[string]Observation, len(state.observations)),
	}
	for k, v := range state.surveys {
		s.Surveys[k] = cloneSurvey(v)
	}
	for k, v := range state.plots {
		s.Plots[k] = clonePlot(v)
	}
	for k, v := range state.taxa {
		s.Taxa[k] = cloneTaxon(v)
	}
	for k, v := range state.observations {
		s.Observations[k] = cloneObservation(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Surveys {
		state.surveys[k] = cloneSurvey(v)
	}
	for k, v := range s.Plots {
		state.plots[k] = clonePlot(v)
	}
	for k, v := range s.Taxa {
		state.taxa[k] = cloneTaxon(v)
	}
	for k, v := range s.Observations {
		state.observations[k] = cloneObservation(v)
	}
	return state
}

// migrateSnapshot normalises snapshots loaded from durable storage: nil
// buckets become empty, taxa missing an origin default to unknown, and
// records whose references no longer resolve are dropped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Surveys == nil {
		snapshot.Surveys = map[string]Survey{}
	}
	if snapshot.Plots == nil {
		snapshot.Plots = map[string]Plot{}
	}
	if snapshot.Taxa == nil {
		snapshot.Taxa = map[string]Taxon{}
	}
	if snapshot.Observations == nil {
		snapshot.Observations = map[string]Observation{}
	}

	for id, taxon := range snapshot.Taxa {
		if taxon.Origin == "" {
			taxon.Origin = domain.OriginUnknown
			snapshot.Taxa[id] = taxon
		}
	}

	surveyExists := func(id string) bool {
		_, ok := snapshot.Surveys[id]
		return ok
	}
	for id, plot := range snapshot.Plots {
		if plot.SurveyID == "" || !surveyExists(plot.SurveyID) {
			delete(snapshot.Plots, id)
		}
	}
	for id, observation := range snapshot.Observations {
		if !surveyExists(observation.SurveyID) {
			delete(snapshot.Observations, id)
			continue
		}
		if _, ok := snapshot.Plots[observation.PlotID]; !ok {
			delete(snapshot.Observations, id)
			continue
		}
		if _, ok := snapshot.Taxa[observation.TaxonID]; !ok {
			delete(snapshot.Observations, id)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.surveys {
		cloned.surveys[k] = cloneSurvey(v)
	}
	for k, v := range s.plots {
		cloned.plots[k] = clonePlot(v)
	}
	for k, v := range s.taxa {
		cloned.taxa[k] = cloneTaxon(v)
	}
	for k, v := range s.observations {
		cloned.observations[k] = cloneObservation(v)
	}
	return cloned
}

func cloneSurvey(s Survey) Survey {
	cp := s
	cp.Attributes = cloneAttributes(s.Attributes)
	return cp
}

func clonePlot(p Plot) Plot {
	cp := p
	cp.Attributes = cloneAttributes(p.Attributes)
	return cp
}

func cloneTaxon(t Taxon) Taxon {
	cp := t
	cp.Attributes = cloneAttributes(t.Attributes)
	return cp
}

func cloneObservation(o Observation) Observation {
	cp := o
	cp.Attributes = cloneAttributes(o.Attributes)
	return cp
}

func cloneAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneAttributes(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the configured engine for integration points like plugins.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListSurveys returns all surveys within the snapshot, oldest first.
func (v transactionView) ListSurveys() []Survey {
	out := make([]Survey, 0, len(v.state.surveys))
	for _, s := range v.state.surveys {
		out = append(out, cloneSurvey(s))
	}
	sortSurveys(out)
	return out
}

// ListPlots returns all plots within the snapshot, oldest first.
func (v transactionView) ListPlots() []Plot {
	out := make([]Plot, 0, len(v.state.plots))
	for _, p := range v.state.plots {
		out = append(out, clonePlot(p))
	}
	sortPlots(out)
	return out
}

// ListTaxa returns all taxa within the snapshot, oldest first.
func (v transactionView) ListTaxa() []Taxon {
	out := make([]Taxon, 0, len(v.state.taxa))
	for _, t := range v.state.taxa {
		out = append(out, cloneTaxon(t))
	}
	sortTaxa(out)
	return out
}

// ListObservations returns all observations within the snapshot, oldest first.
func (v transactionView) ListObservations() []Observation {
	out := make([]Observation, 0, len(v.state.observations))
	for _, o := range v.state.observations {
		out = append(out, cloneObservation(o))
	}
	sortObservations(out)
	return out
}

// FindSurvey retrieves a survey by ID from the snapshot.
func (v transactionView) FindSurvey(id string) (Survey, bool) {
	s, ok := v.state.surveys[id]
	if !ok {
		return Survey{}, false
	}
	return cloneSurvey(s), true
}

// FindPlot retrieves a plot by ID from the snapshot.
func (v transactionView) FindPlot(id string) (Plot, bool) {
	p, ok := v.state.plots[id]
	if !ok {
		return Plot{}, false
	}
	return clonePlot(p), true
}

// FindTaxon retrieves a taxon by ID from the snapshot.
func (v transactionView) FindTaxon(id string) (Taxon, bool) {
	t, ok := v.state.taxa[id]
	if !ok {
		return Taxon{}, false
	}
	return cloneTaxon(t), true
}

// FindObservation retrieves an observation by ID from the snapshot.
func (v transactionView) FindObservation(id string) (Observation, bool) {
	o, ok := v.state.observations[id]
	if !ok {
		return Observation{}, false
	}
	return cloneObservation(o), true
}

func sortSurveys(out []Survey) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

func sortPlots(out []Plot) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

func sortTaxa(out []Taxon) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

func sortObservations(out []Observation) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated against the mutated state before commit; blocking
// violations abort with a domain.RuleViolationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindSurvey exposes survey lookup within the transaction scope.
func (tx *transaction) FindSurvey(id string) (Survey, bool) {
	s, ok := tx.state.surveys[id]
	if !ok {
		return Survey{}, false
	}
	return cloneSurvey(s), true
}

// FindPlot exposes plot lookup within the transaction scope.
func (tx *transaction) FindPlot(id string) (Plot, bool) {
	p, ok := tx.state.plots[id]
	if !ok {
		return Plot{}, false
	}
	return clonePlot(p), true
}

// FindTaxonByName looks a taxon up by scientific name within the transaction.
func (tx *transaction) FindTaxonByName(scientificName string) (Taxon, bool) {
	for _, t := range tx.state.taxa {
		if t.ScientificName == scientificName {
			return cloneTaxon(t), true
		}
	}
	return Taxon{}, false
}

// CreateSurvey stores a new survey within the transaction.
func (tx *transaction) CreateSurvey(s Survey) (Survey, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.surveys[s.ID]; exists {
		return Survey{}, fmt.Errorf("survey %q already exists", s.ID)
	}
	if s.Code == "" {
		return Survey{}, errors.New("survey requires a code")
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.surveys[s.ID] = cloneSurvey(s)
	tx.recordChange(Change{Entity: domain.EntitySurvey, Action: domain.ActionCreate, After: cloneSurvey(s)})
	return cloneSurvey(s), nil
}

// UpdateSurvey mutates a survey using the provided mutator function.
func (tx *transaction) UpdateSurvey(id string, mutator func(*Survey) error) (Survey, error) {
	current, ok := tx.state.surveys[id]
	if !ok {
		return Survey{}, fmt.Errorf("survey %q not found", id)
	}
	before := cloneSurvey(current)
	if err := mutator(&current); err != nil {
		return Survey{}, err
	}
	if current.Code == "" {
		return Survey{}, errors.New("survey requires a code")
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.surveys[id] = cloneSurvey(current)
	tx.recordChange(Change{Entity: domain.EntitySurvey, Action: domain.ActionUpdate, Before: before, After: cloneSurvey(current)})
	return cloneSurvey(current), nil
}

// DeleteSurvey removes a survey; plots and observations must go first.
func (tx *transaction) DeleteSurvey(id string) error {
	current, ok := tx.state.surveys[id]
	if !ok {
		return fmt.Errorf("survey %q not found", id)
	}
	for _, plot := range tx.state.plots {
		if plot.SurveyID == id {
			return fmt.Errorf("survey %q still referenced by plot %q", id, plot.ID)
		}
	}
	for _, observation := range tx.state.observations {
		if observation.SurveyID == id {
			return fmt.Errorf("survey %q still referenced by observation %q", id, observation.ID)
		}
	}
	delete(tx.state.surveys, id)
	tx.recordChange(Change{Entity: domain.EntitySurvey, Action: domain.ActionDelete, Before: cloneSurvey(current)})
	return nil
}

// CreatePlot stores a new plot within the transaction.
func (tx *transaction) CreatePlot(p Plot) (Plot, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.plots[p.ID]; exists {
		return Plot{}, fmt.Errorf("plot %q already exists", p.ID)
	}
	if p.Name == "" {
		return Plot{}, errors.New("plot requires a name")
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plots[p.ID] = clonePlot(p)
	tx.recordChange(Change{Entity: domain.EntityPlot, Action: domain.ActionCreate, After: clonePlot(p)})
	return clonePlot(p), nil
}

// UpdatePlot mutates an existing plot.
func (tx *transaction) UpdatePlot(id string, mutator func(*Plot) error) (Plot, error) {
	current, ok := tx.state.plots[id]
	if !ok {
		return Plot{}, fmt.Errorf("plot %q not found", id)
	}
	before := clonePlot(current)
	if err := mutator(&current); err != nil {
		return Plot{}, err
	}
	if current.Name == "" {
		return Plot{}, errors.New("plot requires a name")
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.plots[id] = clonePlot(current)
	tx.recordChange(Change{Entity: domain.EntityPlot, Action: domain.ActionUpdate, Before: before, After: clonePlot(current)})
	return clonePlot(current), nil
}

// DeletePlot removes a plot; its observations must go first.
func (tx *transaction) DeletePlot(id string) error {
	current, ok := tx.state.plots[id]
	if !ok {
		return fmt.Errorf("plot %q not found", id)
	}
	for _, observation := range tx.state.observations {
		if observation.PlotID == id {
			return fmt.Errorf("plot %q still referenced by observation %q", id, observation.ID)
		}
	}
	delete(tx.state.plots, id)
	tx.recordChange(Change{Entity: domain.EntityPlot, Action: domain.ActionDelete, Before: clonePlot(current)})
	return nil
}

// CreateTaxon stores a new taxon within the transaction.
func (tx *transaction) CreateTaxon(t Taxon) (Taxon, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.taxa[t.ID]; exists {
		return Taxon{}, fmt.Errorf("taxon %q already exists", t.ID)
	}
	if t.ScientificName == "" {
		return Taxon{}, errors.New("taxon requires a scientific name")
	}
	if t.Origin == "" {
		t.Origin = domain.OriginUnknown
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.taxa[t.ID] = cloneTaxon(t)
	tx.recordChange(Change{Entity: domain.EntityTaxon, Action: domain.ActionCreate, After: cloneTaxon(t)})
	return cloneTaxon(t), nil
}

// UpdateTaxon mutates an existing taxon.
func (tx *transaction) UpdateTaxon(id string, mutator func(*Taxon) error) (Taxon, error) {
	current, ok := tx.state.taxa[id]
	if !ok {
		return Taxon{}, fmt.Errorf("taxon %q not found", id)
	}
	before := cloneTaxon(current)
	if err := mutator(&current); err != nil {
		return Taxon{}, err
	}
	if current.ScientificName == "" {
		return Taxon{}, errors.New("taxon requires a scientific name")
	}
	if current.Origin == "" {
		current.Origin = domain.OriginUnknown
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.taxa[id] = cloneTaxon(current)
	tx.recordChange(Change{Entity: domain.EntityTaxon, Action: domain.ActionUpdate, Before: before, After: cloneTaxon(current)})
	return cloneTaxon(current), nil
}

// DeleteTaxon removes a taxon; its observations must go first.
func (tx *transaction) DeleteTaxon(id string) error {
	current, ok := tx.state.taxa[id]
	if !ok {
		return fmt.Errorf("taxon %q not found", id)
	}
	for _, observation := range tx.state.observations {
		if observation.TaxonID == id {
			return fmt.Errorf("taxon %q still referenced by observation %q", id, observation.ID)
		}
	}
	delete(tx.state.taxa, id)
	tx.recordChange(Change{Entity: domain.EntityTaxon, Action: domain.ActionDelete, Before: cloneTaxon(current)})
	return nil
}

// CreateObservation stores a new observation within the transaction.
// Referential linkage and count validity are enforced by the rules engine at
// commit time so violations surface as structured results.
func (tx *transaction) CreateObservation(o Observation) (Observation, error) {
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	if _, exists := tx.state.observations[o.ID]; exists {
		return Observation{}, fmt.Errorf("observation %q already exists", o.ID)
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	if o.ObservedAt.IsZero() {
		o.ObservedAt = tx.now
	}
	tx.state.observations[o.ID] = cloneObservation(o)
	tx.recordChange(Change{Entity: domain.EntityObservation, Action: domain.ActionCreate, After: cloneObservation(o)})
	return cloneObservation(o), nil
}

// UpdateObservation mutates an existing observation.
func (tx *transaction) UpdateObservation(id string, mutator func(*Observation) error) (Observation, error) {
	current, ok := tx.state.observations[id]
	if !ok {
		return Observation{}, fmt.Errorf("observation %q not found", id)
	}
	before := cloneObservation(current)
	if err := mutator(&current); err != nil {
		return Observation{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.observations[id] = cloneObservation(current)
	tx.recordChange(Change{Entity: domain.EntityObservation, Action: domain.ActionUpdate, Before: before, After: cloneObservation(current)})
	return cloneObservation(current), nil
}

// DeleteObservation removes an observation from the transaction state.
func (tx *transaction) DeleteObservation(id string) error {
	current, ok := tx.state.observations[id]
	if !ok {
		return fmt.Errorf("observation %q not found", id)
	}
	delete(tx.state.observations, id)
	tx.recordChange(Change{Entity: domain.EntityObservation, Action: domain.ActionDelete, Before: cloneObservation(current)})
	return nil
}

// GetSurvey retrieves a survey by ID from committed state.
func (s *Store) GetSurvey(id string) (Survey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	survey, ok := s.state.surveys[id]
	if !ok {
		return Survey{}, false
	}
	return cloneSurvey(survey), true
}

// ListSurveys returns all committed surveys, oldest first.
func (s *Store) ListSurveys() []Survey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Survey, 0, len(s.state.surveys))
	for _, survey := range s.state.surveys {
		out = append(out, cloneSurvey(survey))
	}
	sortSurveys(out)
	return out
}

// GetPlot retrieves a plot by ID from committed state.
func (s *Store) GetPlot(id string) (Plot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plot, ok := s.state.plots[id]
	if !ok {
		return Plot{}, false
	}
	return clonePlot(plot), true
}

// ListPlots returns all committed plots, oldest first.
func (s *Store) ListPlots() []Plot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plot, 0, len(s.state.plots))
	for _, plot := range s.state.plots {
		out = append(out, clonePlot(plot))
	}
	sortPlots(out)
	return out
}

// GetTaxon retrieves a taxon by ID from committed state.
func (s *Store) GetTaxon(id string) (Taxon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	taxon, ok := s.state.taxa[id]
	if !ok {
		return Taxon{}, false
	}
	return cloneTaxon(taxon), true
}

// ListTaxa returns all committed taxa, oldest first.
func (s *Store) ListTaxa() []Taxon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Taxon, 0, len(s.state.taxa))
	for _, taxon := range s.state.taxa {
		out = append(out, cloneTaxon(taxon))
	}
	sortTaxa(out)
	return out
}

// GetObservation retrieves an observation by ID from committed state.
func (s *Store) GetObservation(id string) (Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	observation, ok := s.state.observations[id]
	if !ok {
		return Observation{}, false
	}
	return cloneObservation(observation), true
}

// ListObservations returns all committed observations, oldest first.
func (s *Store) ListObservations() []Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Observation, 0, len(s.state.observations))
	for _, observation := range s.state.observations {
		out = append(out, cloneObservation(observation))
	}
	sortObservations(out)
	return out
}
