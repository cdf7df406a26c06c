package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/team-builder-go/pkg/config"
	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/logger"
	"github.com/arnavshah/team-builder-go/pkg/metrics"
	"github.com/arnavshah/team-builder-go/pkg/models"
	"github.com/arnavshah/team-builder-go/pkg/neighbours"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Options tunes a search
type Options struct {
	Workers       int
	Timeout       time.Duration
	MaxIterations int64
	// MaxIdle stops a worker after that many iterations without a new best; 0 disables
	MaxIdle int64
	// Seed 0 picks a time based seed
	Seed        int64
	VerifyEvery int64
	Tolerance   float64
	Cooling     float64

	MoveWeight     float64
	SwapWeight     float64
	TeamSwapWeight float64
	RepairWeight   float64

	// SeedAttribute and GroupAttribute configure the construction phase
	SeedAttribute  string
	GroupAttribute string
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		Workers:        1,
		Timeout:        30 * time.Second,
		MaxIterations:  200000,
		MaxIdle:        20000,
		Cooling:        0.9995,
		MoveWeight:     1,
		SwapWeight:     1,
		TeamSwapWeight: 0.1,
		RepairWeight:   0.5,
	}
}

// OptionsFromConfig maps the solver section of the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	s := cfg.Solver
	return Options{
		Workers:        s.Workers,
		Timeout:        s.Timeout,
		MaxIterations:  s.MaxIterations,
		MaxIdle:        s.MaxIdle,
		Seed:           s.Seed,
		VerifyEvery:    s.VerifyEvery,
		Tolerance:      s.Tolerance,
		Cooling:        s.Cooling,
		MoveWeight:     s.MoveWeight,
		SwapWeight:     s.SwapWeight,
		TeamSwapWeight: s.TeamSwapWeight,
		RepairWeight:   s.RepairWeight,
		SeedAttribute:  cfg.Teams.ConstructionSeed(),
		GroupAttribute: cfg.Teams.GroupAttribute,
	}
}

// Solution is the best assignment found by a search
type Solution struct {
	RunID        string
	Snapshot     scheduler.Snapshot
	Unassigned   int
	Total        float64
	Iterations   int64
	Worker       int
	Duration     time.Duration
	Unassignable []models.UnassignedReason
}

// Complete tells whether every person got a team
func (s *Solution) Complete() bool { return s.Unassigned == 0 }

// Assignment rebuilds the solution as a fresh assignment over the model
func (s *Solution) Assignment(m *scheduler.Model) *scheduler.Assignment {
	return m.NewAssignmentFrom(s.Snapshot)
}

// better orders by fewest unassigned, then lowest total
func better(u1 int, v1 float64, u2 int, v2 float64) bool {
	if u1 != u2 {
		return u1 < u2
	}
	return v1 < v2
}

// Solver runs construction followed by a local search over a shared read-only model
type Solver struct {
	model   *scheduler.Model
	opts    Options
	log     *logger.Logger
	metrics metrics.Recorder
}

// Option customises a Solver
type Option func(*Solver)

// WithLogger sets the logger, which defaults to the standard logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Solver) { s.log = l }
}

// WithMetrics sets the event recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Solver) { s.metrics = r }
}

func New(m *scheduler.Model, opts Options, options ...Option) *Solver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Cooling <= 0 || opts.Cooling > 1 {
		opts.Cooling = 1
	}
	s := &Solver{model: m, opts: opts, log: logger.New(), metrics: metrics.Nop{}}
	for _, o := range options {
		o(s)
	}
	return s
}

// best is shared between the workers
type best struct {
	mu       sync.Mutex
	solution *Solution
}

func (b *best) offer(s *Solution) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.solution != nil && !better(s.Unassigned, s.Total, b.solution.Unassigned, b.solution.Total) {
		return false
	}
	b.solution = s
	return true
}

func (b *best) get() *Solution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.solution
}

// Solve searches until the timeout, the iteration limit, idleness or
// cancellation of ctx. A desync found by the periodic verification aborts the
// search with the DesyncError.
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := s.log.WithFields(map[string]interface{}{
		"run_id":  runID,
		"people":  len(s.model.People),
		"teams":   len(s.model.Teams),
		"workers": s.opts.Workers,
	})

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	seed := s.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	shared := &best{}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.opts.Workers; i++ {
		w := &worker{
			id:     i,
			solver: s,
			runID:  runID,
			rnd:    rand.New(rand.NewSource(seed + int64(i))),
			log:    log.WithField("worker", i),
			best:   shared,
		}
		g.Go(func() error { return w.run(gctx) })
	}
	if err := g.Wait(); err != nil {
		s.metrics.RunFinished("failed", time.Since(start).Seconds())
		log.WithError(err).Error("search aborted")
		return nil, err
	}

	sol := shared.get()
	sol.Duration = time.Since(start)
	outcome := "complete"
	if !sol.Complete() {
		outcome = "partial"
	}
	s.metrics.RunFinished(outcome, sol.Duration.Seconds())
	log.WithFields(map[string]interface{}{
		"unassigned": sol.Unassigned,
		"total":      sol.Total,
		"iterations": sol.Iterations,
		"best_of":    sol.Worker,
		"elapsed":    sol.Duration.String(),
	}).Info("search finished")
	return sol, nil
}

type selection struct {
	name   string
	weight float64
	sel    scheduler.NeighbourSelection
}

type worker struct {
	id     int
	solver *Solver
	runID  string
	rnd    *rand.Rand
	log    *logger.Logger
	best   *best

	selections []selection
	sum        float64
}

func (w *worker) init(a *scheduler.Assignment) error {
	o := w.solver.opts
	w.selections = w.selections[:0]
	w.sum = 0
	for _, s := range []selection{
		{"move", o.MoveWeight, neighbours.Move{}},
		{"swap", o.SwapWeight, neighbours.NewSwap()},
		{"team_swap", o.TeamSwapWeight, neighbours.TeamSwap{}},
		{"repair", o.RepairWeight, neighbours.Repair{}},
	} {
		if s.weight <= 0 {
			continue
		}
		if err := s.sel.Init(a); err != nil {
			return err
		}
		w.selections = append(w.selections, s)
		w.sum += s.weight
	}
	return nil
}

func (w *worker) pick() selection {
	r := w.rnd.Float64() * w.sum
	for _, s := range w.selections {
		if r < s.weight {
			return s
		}
		r -= s.weight
	}
	return w.selections[len(w.selections)-1]
}

// snapshot captures the current assignment; persons left out keep the reason
// recorded by the construction, or "evicted" when the search displaced them
func (w *worker) snapshot(a *scheduler.Assignment, reasons map[string]models.UnassignedReason) *Solution {
	m := a.Model()
	sol := &Solution{
		RunID:      w.runID,
		Snapshot:   a.Snapshot(),
		Unassigned: len(m.People) - a.NrAssigned(),
		Total:      m.TotalValue(a),
		Iterations: a.Iteration(),
		Worker:     w.id,
	}
	for _, p := range a.Unassigned() {
		r, ok := reasons[p.ID]
		if !ok {
			r = models.UnassignedReason{PersonID: p.ID, Reasons: []string{"evicted"}}
			if g := w.solver.opts.GroupAttribute; g != "" {
				r.Group, _ = p.Attributes.Get(g)
			}
		}
		sol.Unassignable = append(sol.Unassignable, r)
	}
	return sol
}

func (w *worker) run(ctx context.Context) error {
	o := w.solver.opts
	m := w.solver.model
	rec := w.solver.metrics
	a := m.NewAssignment()

	c := neighbours.NewConstruction(o.SeedAttribute, o.GroupAttribute)
	if err := c.Init(a); err != nil {
		return err
	}
	for n := c.Select(a, w.rnd); n != nil; n = c.Select(a, w.rnd) {
		n.Apply(a)
	}
	for _, r := range c.Unassignable() {
		w.log.WithFields(map[string]interface{}{
			"person":  r.PersonID,
			"group":   r.Group,
			"reasons": r.Reasons,
		}).Debug("person left unassigned by construction")
	}
	if err := a.Verify(); err != nil {
		return err
	}
	unassignable := make(map[string]models.UnassignedReason, len(c.Unassignable()))
	for _, r := range c.Unassignable() {
		unassignable[r.PersonID] = r
	}

	if err := w.init(a); err != nil {
		return err
	}
	// per team rescoring when every criterion allows it, a full rescan otherwise
	var values *scheduler.TeamValues
	if m.Decomposable() {
		values = scheduler.NewTeamValues(a)
	}
	curUnassigned, curTotal := len(m.People)-a.NrAssigned(), m.TotalValue(a)
	bestUnassigned, bestTotal := curUnassigned, curTotal
	if w.best.offer(w.snapshot(a, unassignable)) {
		rec.Improved(bestUnassigned, bestTotal)
	}
	w.log.WithFields(map[string]interface{}{
		"unassigned": curUnassigned,
		"total":      curTotal,
	}).Debug("construction done")
	if len(w.selections) == 0 {
		return nil
	}

	tolerance := o.Tolerance
	var it, idle int64
	for {
		if err := ctx.Err(); err != nil {
			break
		}
		if o.MaxIterations > 0 && it >= o.MaxIterations {
			break
		}
		if o.MaxIdle > 0 && idle >= o.MaxIdle {
			break
		}
		it++
		idle++
		a.SetIteration(it)

		s := w.pick()
		n := s.sel.Select(a, w.rnd)
		if n == nil {
			rec.Iteration(s.name, false)
			continue
		}
		n.Apply(a)
		u := len(m.People) - a.NrAssigned()
		var v float64
		if values != nil {
			v = values.Pending(a)
		} else {
			v = m.TotalValue(a)
		}
		slack := tolerance * math.Max(1, math.Abs(bestTotal))
		accepted := u < curUnassigned || (u == curUnassigned && v <= curTotal+slack)
		if accepted {
			curUnassigned, curTotal = u, v
			if values != nil {
				values.Commit(a)
				curTotal = values.Total()
			}
		} else {
			n.Undo(a)
			if values != nil {
				values.Discard(a)
			}
		}
		rec.Iteration(s.name, accepted)
		tolerance *= o.Cooling

		if o.VerifyEvery > 0 && it%o.VerifyEvery == 0 {
			if err := a.Verify(); err != nil {
				w.log.WithError(err).WithField("iteration", it).Error("context desync")
				return err
			}
			if values != nil {
				if exact := m.TotalValue(a); math.Abs(exact-values.Total()) > 1e-6*math.Max(1, math.Abs(exact)) {
					err := &apperrors.DesyncError{Team: "*", Details: []string{fmt.Sprintf("cached total %g != %g", values.Total(), exact)}}
					w.log.WithError(err).WithField("iteration", it).Error("value desync")
					return err
				}
			}
		}

		if accepted && better(curUnassigned, curTotal, bestUnassigned, bestTotal) {
			bestUnassigned, bestTotal = curUnassigned, curTotal
			idle = 0
			if w.best.offer(w.snapshot(a, unassignable)) {
				rec.Improved(bestUnassigned, bestTotal)
			}
		}
	}
	w.log.WithFields(map[string]interface{}{
		"iterations": it,
		"unassigned": bestUnassigned,
		"total":      bestTotal,
	}).Debug("worker finished")
	return nil
}
